package viverse

import (
	"context"

	"github.com/morezero/viverse-bridge/pkg/result"
)

// AvatarService reads the user's profile and avatars.
type AvatarService struct {
	c *Client
}

// GetProfile returns the signed-in user's profile.
func (s *AvatarService) GetProfile(ctx context.Context) result.Result[Profile] {
	return call[Profile](ctx, s.c, MethodGetProfile, nil)
}

// GetAvatarList returns the user's avatars. Entries without an id are dropped.
func (s *AvatarService) GetAvatarList(ctx context.Context) result.Result[[]Avatar] {
	return callList[Avatar](ctx, s.c, MethodGetAvatarList, nil, "avatars", "data")
}

// GetPublicAvatarList returns public avatars. Entries without a model URL are dropped.
func (s *AvatarService) GetPublicAvatarList(ctx context.Context) result.Result[[]Avatar] {
	r := callList[publicAvatar](ctx, s.c, MethodGetPublicAvatarList, nil, "avatars", "data")
	if !r.IsSuccess() {
		return result.FailureFrom[[]Avatar](r)
	}
	out := make([]Avatar, len(r.Data))
	for i, a := range r.Data {
		out[i] = Avatar(a)
	}
	return result.Success(out, r.RawPayload)
}

// GetActiveAvatar returns the avatar currently in use.
func (s *AvatarService) GetActiveAvatar(ctx context.Context) result.Result[Avatar] {
	return call[Avatar](ctx, s.c, MethodGetActiveAvatar, nil)
}
