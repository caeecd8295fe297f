package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Browser flow
	RouteAuthorize = "/auth/authorize"
	RouteCallback  = "/auth/callback"

	// API Routes
	RouteAPISession = "/api/session"
	RouteAPIContent = "/api/content/{contentID}"

	// Streaming Routes (patterns)
	RouteStreamManifest = "/stream/{contentID}/playlist.m3u8"
	RouteStreamSegment  = "/stream/{contentID}/{segment}"

	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// Query parameter names. The legacy names are accepted as aliases.
const (
	paramCreator          = "creator"
	paramCreatorLegacy    = "github-user"
	paramReturnURL        = "return_url"
	paramReturnURLLegacy  = "redirect_uri"
	paramState            = "state"
	paramCode             = "code"
	paramError            = "error"
	paramErrorDescription = "error_description"
	pathValueContentID    = "contentID"
	pathValueSegment      = "segment"
)

// Parameters appended to the caller's return URL after the callback.
const (
	returnParamStatus       = "sponsor_status"
	returnParamToken        = "sponsor_token"
	returnParamCreator      = "github_user"
	returnParamVisitorLogin = "visitor_login"
	returnParamVisitorName  = "visitor_name"
	returnParamIsOwner      = "is_owner"
	returnParamExpiresAt    = "expires_at"
	returnParamCacheUntil   = "cache_until"
	returnParamError        = "error"
	returnParamErrorMessage = "error_message"
	returnParamState        = "state"
)
