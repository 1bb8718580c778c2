package codeforces

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signer adds apiKey, time and apiSig to requests made with an API key.
// See https://codeforces.com/apiHelp, section "Authorization".
type Signer struct {
	key    string
	secret string

	now  func() time.Time
	rand func() string
}

// NewSigner returns nil when key or secret is empty, meaning anonymous
// requests.
func NewSigner(key, secret string) *Signer {
	if key == "" || secret == "" {
		return nil
	}
	return &Signer{
		key:    key,
		secret: secret,
		now:    time.Now,
		rand: func() string {
			return fmt.Sprintf("%06d", rand.IntN(1_000_000))
		},
	}
}

// Sign returns a copy of params with the authorization parameters added.
func (s *Signer) Sign(method string, params url.Values) url.Values {
	signed := make(url.Values, len(params)+3)
	for k, v := range params {
		signed[k] = append([]string(nil), v...)
	}
	signed.Set("apiKey", s.key)
	signed.Set("time", strconv.FormatInt(s.now().Unix(), 10))

	prefix := s.rand()
	base := prefix + "/" + method + "?" + canonicalQuery(signed) + "#" + s.secret
	sum := sha512.Sum512([]byte(base))
	signed.Set("apiSig", prefix+hex.EncodeToString(sum[:]))
	return signed
}

// canonicalQuery joins unescaped key=value pairs sorted by key, then value.
func canonicalQuery(params url.Values) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, pair{k, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(p.v)
	}
	return b.String()
}
