package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes members created by end-to-end tests, matched by a
// name prefix, along with their identities and usage records. Never
// routed in production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	memberIDs, err := s.loadMemberIDsByPrefix(ctx, prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteMemberData(ctx, memberIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "members": len(memberIDs)})
}

func (s *Server) loadMemberIDsByPrefix(ctx context.Context, prefix string) ([]int64, error) {
	like := strings.TrimSpace(prefix) + "%"
	var memberIDs []int64
	if err := s.db.WithContext(ctx).
		Table("members").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&memberIDs).Error; err != nil {
		return nil, err
	}
	return memberIDs, nil
}

func (s *Server) deleteMemberData(ctx context.Context, memberIDs []int64) error {
	if len(memberIDs) == 0 {
		return nil
	}
	queries := []string{
		`DELETE FROM usage_records WHERE member_id IN ?`,
		`DELETE FROM member_identities WHERE member_id IN ?`,
		`DELETE FROM members WHERE id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, memberIDs).Error; err != nil {
			return err
		}
	}
	return nil
}
