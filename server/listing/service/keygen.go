package service

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	maxSanitizedNameLen = 50
	outputExtension     = ".jpg"
)

var thumbnailSuffixes = []string{"_small", "_medium", "_large"}

// KeyGenerator produces object-store keys of the form
// {namespace}/{ownerID}/{ULID}-{sanitizedName}.jpg. The ULID carries the
// creation timestamp plus 80 bits of entropy, so concurrent uploads of the
// same filename in the same millisecond still get distinct keys.
type KeyGenerator struct {
	namespace string
	entropy   ulid.MonotonicReader
	now       func() time.Time
}

func NewKeyGenerator(namespace string) *KeyGenerator {
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &KeyGenerator{
		namespace: strings.Trim(namespace, "/"),
		entropy:   &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(seed, 0)},
		now:       time.Now,
	}
}

func (g *KeyGenerator) Generate(ownerID, originalName string) string {
	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	return fmt.Sprintf("%s/%s/%s-%s%s", g.namespace, ownerID, id.String(), sanitizeName(originalName), outputExtension)
}

// RenditionKeys returns every object-store key derived from a source key:
// the source itself plus the three thumbnail keys.
func RenditionKeys(sourceKey string) []string {
	keys := make([]string, 0, 1+len(thumbnailSuffixes))
	keys = append(keys, sourceKey)
	base := strings.TrimSuffix(sourceKey, outputExtension)
	for _, suffix := range thumbnailSuffixes {
		keys = append(keys, base+suffix+outputExtension)
	}
	return keys
}

func thumbnailKey(sourceKey, suffix string) string {
	return strings.TrimSuffix(sourceKey, outputExtension) + suffix + outputExtension
}

func sanitizeName(name string) string {
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	sanitized := b.String()
	if sanitized == "" {
		sanitized = "upload"
	}
	if len(sanitized) > maxSanitizedNameLen {
		sanitized = sanitized[:maxSanitizedNameLen]
	}
	return sanitized
}
