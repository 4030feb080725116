// Package linvo is a parental-control video browsing core.
//
// A parent approves video channels per kid profile; linvo imports the
// recent uploads of those channels from the YouTube Data API, and each kid
// browses and plays only the imported videos. All state (kids, approved
// channels, imported videos, viewing settings) lives in one JSON document.
//
// Overview
//
// The work is split across sub-packages:
//
//   - storage: the state document, its validation and persistence backends
//   - catalog: channel resolution and recent-video listing via the Data API
//   - config: configuration management
//
// The services (kid profiles, settings, channel import, playback history)
// and the HTTP API are internal and reached through the linvo command:
//
//	linvo add-kid Sam
//	linvo import --kid kid-1 https://www.youtube.com/@kidsclub
//	linvo serve
//
// Configuration
//
// linvo loads settings from multiple sources:
//
//  1. Environment variables (highest priority), also read from a .env file
//  2. Config file (linvo.json or ~/.config/linvo/linvo.json)
//  3. Default values (lowest priority)
//
// Common environment variables:
//
//   - LINVO_YT_API_KEY: YouTube Data API key
//   - LINVO_STORE_BACKEND: file, sqlite or memory
//   - LINVO_STORE_PATH: location of the state document
//   - LINVO_PARENT_PIN_HASH: bcrypt hash of the parent PIN (see linvo hash-pin)
//   - LINVO_LISTEN_ADDR: HTTP API address
//
// Error Handling
//
// Errors follow the standard Go patterns:
//
//	if errors.Is(err, linvo.ErrChannelNotFound) {
//		fmt.Println("No such channel, check the handle")
//	}
//
//	var terr *linvo.TransportError
//	if errors.As(err, &terr) {
//		fmt.Printf("%s failed with status %d\n", terr.Op, terr.StatusCode)
//	}
//
// Loading and saving the document never fail their caller: malformed
// documents fall back to the default, and failed writes are logged while
// the in-memory state stays authoritative.
package linvo
