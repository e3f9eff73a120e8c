package viverse

// InitOptions configures Initialize.
type InitOptions struct {
	ClientID string `json:"clientId"`
	// Domain optionally selects the account domain the SDK authenticates against.
	Domain string `json:"domain,omitempty"`
}

// InitInfo describes a successful initialization.
type InitInfo struct {
	SDKVersion string `json:"sdkVersion"`
	ClientID   string `json:"clientId"`
}

// AuthInfo is the result of CheckAuth.
type AuthInfo struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Stats is a point-in-time view of the client for health reporting.
type Stats struct {
	Initialized   bool   `json:"initialized"`
	SDKVersion    string `json:"sdkVersion,omitempty"`
	PendingCalls  int    `json:"pendingCalls"`
	Subscriptions int    `json:"subscriptions"`
}

// Profile is the signed-in user's profile.
type Profile struct {
	Name         string  `json:"name"`
	ActiveAvatar *Avatar `json:"activeAvatar,omitempty"`
}

// Avatar is one avatar owned by or visible to the user.
type Avatar struct {
	ID          string `json:"id"`
	IsPrivate   bool   `json:"isPrivate"`
	VrmURL      string `json:"vrmUrl"`
	HeadIconURL string `json:"headIconUrl,omitempty"`
	Snapshot    string `json:"snapshot,omitempty"`
	CreateTime  int64  `json:"createTime,omitempty"`
	UpdateTime  int64  `json:"updateTime,omitempty"`
}

// IdentityKey implements codec.Identified.
func (a Avatar) IdentityKey() string { return a.ID }

// publicAvatar keys public avatars by model URL; entries without one cannot be loaded.
type publicAvatar Avatar

func (a publicAvatar) IdentityKey() string { return a.VrmURL }

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	UserID string  `json:"userId,omitempty"`
}

// IdentityKey implements codec.Identified.
func (e LeaderboardEntry) IdentityKey() string { return e.Name }

// LeaderboardQuery selects a leaderboard page.
type LeaderboardQuery struct {
	Name string `json:"name"`
	// Range is the number of entries to return.
	Range int `json:"range,omitempty"`
	// Region is "global" or "local"; empty means global.
	Region string `json:"region,omitempty"`
	// AroundUser centers the page on the signed-in user.
	AroundUser bool `json:"aroundUser,omitempty"`
}

// Actor describes the local player in matchmaking.
type Actor struct {
	SessionID  string            `json:"session_id"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

// RoomConfig configures CreateRoom.
type RoomConfig struct {
	Name       string            `json:"name"`
	Mode       string            `json:"mode,omitempty"`
	MaxPlayers int               `json:"maxPlayers"`
	MinPlayers int               `json:"minPlayers,omitempty"`
	IsPrivate  bool              `json:"isPrivate,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Room is a matchmaking room.
type Room struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Mode       string            `json:"mode,omitempty"`
	MasterID   string            `json:"master_client_id,omitempty"`
	MaxPlayers int               `json:"maxPlayers"`
	ActorCount int               `json:"actorCount"`
	IsClosed   bool              `json:"isClosed,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// IdentityKey implements codec.Identified.
func (r Room) IdentityKey() string { return r.ID }

// Message is a multiplayer message.
type Message struct {
	SenderID  string `json:"senderId"`
	RoomID    string `json:"roomId,omitempty"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}
