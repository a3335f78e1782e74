package constants

import "time"

// Centralized constants for env keys, headers, routes and shared JSON keys.
const (
	// Environment variable keys
	EnvSessionSecret       = "SESSION_SECRET"
	EnvConfigPath          = "PTS_CONFIG"
	EnvDBPath              = "PTS_DB"
	EnvSessionSecureCookie = "SESSION_SECURE_COOKIE"

	// HTTP headers and content types
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"

	// Authorization prefix
	BearerPrefix = "Bearer "

	// Session / Cookie names
	CookieSessionName = "pts_session"
)

// Routes used by the backend router
const (
	RouteAPIPrefix     = "/api"
	RouteStreamers     = "/streamers"
	RouteItems         = "/items"
	RouteLeaderboard   = "/leaderboard"
	RouteProfile       = "/profile"
	RouteSession       = "/session"
	RouteMatches       = "/matches"
	RouteMatchByID     = "/matches/:matchID"
	RouteMatchMove     = "/matches/:matchID/move"
	RouteMissions      = "/missions"
	RouteMissionByID   = "/missions/:streamerID"
	RouteChannelSocket = "/ws"
)

// Common JSON response keys
const (
	JSONKeyError    = "error"
	JSONKeyMessage  = "message"
	JSONKeyPlayerID = "player_id"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest    = "Invalid request"
	ErrInvalidMatchID    = "Invalid match ID"
	ErrInvalidWager      = "Invalid wager"
	ErrMatchNotFound     = "Match not found"
	ErrMatchNotActive    = "Match is not active"
	ErrPlayerNotInMatch  = "Player not part of this match"
	ErrFailedCreateMatch = "Failed to create match"
	ErrFailedStoreMove   = "Failed to store move"
	ErrStreamerNotFound  = "Streamer not found"
	ErrFailedSaveMission = "Failed to save mission record"
	ErrFailedFetchBoard  = "Failed to fetch leaderboard"
	ErrFailedFetchStats  = "Failed to fetch profile"

	ErrAuthRequired   = "Authentication required"
	ErrInvalidSession = "Invalid session"
)

// Wire error codes returned by the authoritative RPCs. Clients branch on
// these values, so they are part of the external contract.
const (
	CodeNotYourTurn       = "NOT_YOUR_TURN"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeMatchFinished     = "MATCH_FINISHED"
)

// Log field names
const (
	LogFieldAddr     = "addr"
	LogFieldMatchID  = "match_id"
	LogFieldPlayerID = "player_id"
	LogFieldRoomID   = "room_id"
)

// Protocol timing defaults. The matchmaking and disconnect timers are part
// of the protocol contract, the rest is tuning.
const (
	MatchmakingTimeout  = 15 * time.Second
	LateProposalGrace   = 3 * time.Second
	DisconnectGrace     = 30 * time.Second
	EnemyTurnDelay      = 1500 * time.Millisecond
	StageAdvanceDelay   = 2 * time.Second
	SpectatorSyncPeriod = 10 * time.Second
)

// BotOpponentID is the fixed synthetic opponent used when matchmaking times
// out. Bot matches never touch the authoritative store.
const BotOpponentID = "netrunner-bot"
