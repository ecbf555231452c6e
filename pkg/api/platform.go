package api

// Platform identifies an external account provider the user can link.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformYouTube   Platform = "youtube"
	PlatformReddit    Platform = "reddit"
	PlatformPinterest Platform = "pinterest"
	PlatformInstagram Platform = "instagram"
	PlatformGmail     Platform = "gmail"
)

var knownPlatforms = []Platform{
	PlatformLinkedIn,
	PlatformYouTube,
	PlatformReddit,
	PlatformPinterest,
	PlatformInstagram,
	PlatformGmail,
}

// KnownPlatforms returns every platform the SDK can link.
func KnownPlatforms() []Platform {
	out := make([]Platform, len(knownPlatforms))
	copy(out, knownPlatforms)
	return out
}

// Known reports whether p is a platform the SDK can link.
func (p Platform) Known() bool {
	for _, k := range knownPlatforms {
		if k == p {
			return true
		}
	}
	return false
}

// UsesNativeSDK reports whether linking p goes through the provider's own
// device SDK instead of the browser-based OAuth sub-flow.
func (p Platform) UsesNativeSDK() bool {
	return p == PlatformYouTube
}
