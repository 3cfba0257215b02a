package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// AdminList is the static moderator allow-list. It is read-only after
// construction.
type AdminList struct {
	ids   map[int64]struct{}
	order []int64
}

// NewAdminList builds the allow-list from configured ids.
func NewAdminList(ids []int64) *AdminList {
	list := &AdminList{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if _, dup := list.ids[id]; dup {
			continue
		}
		list.ids[id] = struct{}{}
		list.order = append(list.order, id)
	}
	return list
}

// IsAdmin reports whether id may moderate and broadcast.
func (a *AdminList) IsAdmin(id int64) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[id]
	return ok
}

// IDs returns the admins in configured order.
func (a *AdminList) IDs() []int64 {
	if a == nil {
		return nil
	}
	return append([]int64(nil), a.order...)
}

// RequireAdmin rejects principals that are no longer on the allow-list.
func RequireAdmin(admins *AdminList) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !admins.IsAdmin(principal.AdminID) {
			return fiber.NewError(http.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}
