// Package identity provides a durable per-device player identifier.
package identity

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Key is the settings key the identifier is persisted under.
const Key = "mathRaceUserId"

const (
	prefix   = "user_"
	tokenLen = 9
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// KV is the persistence the provider needs. *store.Store satisfies it.
type KV interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Provider hands out the device identifier, creating it on first use.
type Provider struct {
	kv  KV
	log zerolog.Logger

	mu       sync.Mutex
	fallback string
}

// NewProvider returns a Provider backed by kv. A nil kv yields session-scoped ids.
func NewProvider(kv KV, log zerolog.Logger) *Provider {
	return &Provider{kv: kv, log: log}
}

// GetOrCreate returns the persisted identifier, creating it when absent.
// persisted is false when storage was unavailable and an in-memory id was used instead.
func (p *Provider) GetOrCreate(ctx context.Context) (id string, persisted bool) {
	if p.kv == nil {
		return p.sessionID(), false
	}
	existing, ok, err := p.kv.GetSetting(ctx, Key)
	if err != nil {
		p.log.Warn().Err(err).Msg("identity storage unavailable; using session id")
		return p.sessionID(), false
	}
	if ok && existing != "" {
		return existing, true
	}
	id = NewID()
	if err := p.kv.PutSetting(ctx, Key, id); err != nil {
		p.log.Warn().Err(err).Msg("failed to persist identity; using session id")
		p.mu.Lock()
		if p.fallback == "" {
			p.fallback = id
		}
		id = p.fallback
		p.mu.Unlock()
		return id, false
	}
	p.log.Info().Str("user_id", id).Msg("created device identity")
	return id, true
}

func (p *Provider) sessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fallback == "" {
		p.fallback = NewID()
	}
	return p.fallback
}

// NewID creates an identifier of the form "user_" followed by nine base-36 characters.
func NewID() string {
	b := make([]byte, tokenLen)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return prefix + string(b)
}

// Valid reports whether id has the identifier shape.
func Valid(id string) bool {
	if !strings.HasPrefix(id, prefix) {
		return false
	}
	token := id[len(prefix):]
	if len(token) != tokenLen {
		return false
	}
	for i := 0; i < len(token); i++ {
		if !strings.ContainsRune(alphabet, rune(token[i])) {
			return false
		}
	}
	return true
}
