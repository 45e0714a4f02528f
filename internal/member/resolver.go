package member

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/cache"
	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	usagedomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
)

const resolverCacheTTL = 5 * time.Minute

// Builder loads a tenant's identity mappings and produces per-vendor
// resolvers. Built resolvers are cached briefly so repeated syncs within
// one batch don't reload the same maps.
type Builder struct {
	db    *gorm.DB
	log   *zap.Logger
	cache cache.Cache[string, usagedomain.Resolver]
}

// NewBuilder constructs a resolver builder.
func NewBuilder(db *gorm.DB, log *zap.Logger) *Builder {
	return &Builder{
		db:    db,
		log:   log.Named("member.resolver"),
		cache: cache.NewTTLCache[string, usagedomain.Resolver](),
	}
}

var _ usagedomain.ResolverBuilder = (*Builder)(nil)

// BuildResolver returns a resolver for one tenant and vendor. Resolution
// order: vendor identity by email, vendor identity by username, then the
// member's primary email — all lowercased exact matches.
func (b *Builder) BuildResolver(ctx context.Context, tenantID snowflake.ID, vendor snapshotdomain.Vendor) (usagedomain.Resolver, error) {
	key := fmt.Sprintf("%d/%s", tenantID, vendor)
	if cached, ok := b.cache.Get(key); ok {
		return cached, nil
	}

	var identities []Identity
	if err := b.db.WithContext(ctx).
		Where("vendor = ?", string(vendor)).
		Find(&identities).Error; err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}

	var members []Member
	if err := b.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	r := &lookupResolver{
		emailToMember:    make(map[string]snowflake.ID, len(identities)),
		usernameToMember: make(map[string]snowflake.ID, len(identities)),
		memberEmails:     make(map[string]snowflake.ID, len(members)),
	}
	for _, id := range identities {
		if id.VendorEmail != nil && *id.VendorEmail != "" {
			r.emailToMember[strings.ToLower(*id.VendorEmail)] = id.MemberID
		}
		if id.VendorUsername != nil && *id.VendorUsername != "" {
			r.usernameToMember[strings.ToLower(*id.VendorUsername)] = id.MemberID
		}
	}
	for _, m := range members {
		r.memberEmails[strings.ToLower(m.Email)] = m.ID
	}

	b.cache.Set(key, r, resolverCacheTTL)
	return r, nil
}

type lookupResolver struct {
	emailToMember    map[string]snowflake.ID
	usernameToMember map[string]snowflake.ID
	memberEmails     map[string]snowflake.ID
}

func (r *lookupResolver) Resolve(email, username *string) *snowflake.ID {
	if email != nil {
		if id, ok := r.emailToMember[strings.ToLower(*email)]; ok {
			return &id
		}
	}
	if username != nil {
		if id, ok := r.usernameToMember[strings.ToLower(*username)]; ok {
			return &id
		}
	}
	if email != nil {
		if id, ok := r.memberEmails[strings.ToLower(*email)]; ok {
			return &id
		}
	}
	return nil
}
