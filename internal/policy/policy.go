// Package policy contains the pure authorization rules. Every rule is
// deterministic and side-effect free, and must be evaluated before any
// storage mutation is attempted.
package policy

import (
	"github.com/DavidBGG/YaballeBlog/internal/model"
	"github.com/DavidBGG/YaballeBlog/internal/token"
)

// CanModifyResource permits a mutation on a resource owned by ownerID when
// the actor is the owner or a moderator.
func CanModifyResource(actor token.Identity, ownerID int64) bool {
	return actor.UserID == ownerID || actor.Role == model.RoleModerator
}

// IsModerator permits moderator-only operations.
func IsModerator(actor token.Identity) bool {
	return actor.Role == model.RoleModerator
}

// CanCreateRole reports whether a registration request may create an account
// with the requested role. Creating a moderator requires the creating request
// to already carry a valid moderator identity; creating a plain user requires
// no authentication at all.
func CanCreateRole(requested model.Role, actor *token.Identity) bool {
	if requested != model.RoleModerator {
		return true
	}
	return actor != nil && actor.Role == model.RoleModerator
}
