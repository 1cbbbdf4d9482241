// Package avatars provides the fixed avatar pool assigned at signup and
// an optional object-storage backing for self-hosting the pool images.
package avatars

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// PoolSize is the number of images in the avatar pool, addressed by
// integer index 1..PoolSize.
const PoolSize = 100

// Pool renders avatar URLs from a base URL and picks random defaults.
type Pool struct {
	baseURL string
}

func NewPool(baseURL string) *Pool {
	return &Pool{baseURL: strings.TrimRight(baseURL, "/")}
}

// URL renders the avatar URL for the given pool index.
func (p *Pool) URL(index int) string {
	return fmt.Sprintf("%s/%d.png", p.baseURL, index)
}

// Random returns the URL of an avatar chosen uniformly from the pool.
func (p *Pool) Random() string {
	return p.URL(rand.IntN(PoolSize) + 1)
}
