// Package viverse is the typed facade over the Viverse SDK host: client
// lifecycle plus the avatar, leaderboard, matchmaking and multiplayer services.
package viverse

import "github.com/morezero/viverse-bridge/pkg/bridge"

// Host is the callback-based SDK the client drives.
type Host interface {
	// Func binds a host method and its arguments into a function the bridge
	// can invoke with a call id and completion callback.
	Func(method string, args any) bridge.HostFunc
	// RegisterCallback installs the push event callback. A positive token
	// means success; zero or negative values are host return codes.
	RegisterCallback(onEvent func(raw string)) int
	// Unregister removes a push callback. It returns 1 on success.
	Unregister(token int) int
}

// Host method names.
const (
	MethodGetSDKVersion       = "getSdkVersion"
	MethodInit                = "init"
	MethodCheckAuth           = "checkAuth"
	MethodLogout              = "logout"
	MethodGetProfile          = "getProfile"
	MethodGetAvatarList       = "getAvatarList"
	MethodGetPublicAvatarList = "getPublicAvatarList"
	MethodGetActiveAvatar     = "getActiveAvatar"
	MethodUploadScore         = "uploadScore"
	MethodGetLeaderboard      = "getLeaderboard"
	MethodSetActor            = "setActor"
	MethodCreateRoom          = "createRoom"
	MethodJoinRoom            = "joinRoom"
	MethodLeaveRoom           = "leaveRoom"
	MethodCloseRoom           = "closeRoom"
	MethodGetAvailableRooms   = "getAvailableRooms"
	MethodConnectMultiplayer  = "connectMultiplayer"
	MethodSendMessage         = "sendMessage"
)
