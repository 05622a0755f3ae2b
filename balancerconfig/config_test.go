// Copyright (c) 2025 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package balancerconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/httpbalancer"
	"go.uber.org/httpbalancer/balancer"
	"gopkg.in/yaml.v2"
)

func decodeYAML(t *testing.T, s string) (Config, error) {
	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(s), &raw))
	return Decode(raw)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		msg     string
		give    string
		want    map[string]ServiceConfig
		wantErr []string
	}{
		{
			msg: "defaults",
			give: `
services:
  users:
    uris: http://a.example.com
`,
			want: map[string]ServiceConfig{
				"users": {
					URIs:     "http://a.example.com",
					Client:   httpbalancer.DefaultConfig(),
					Balancer: balancer.DefaultConfig(),
				},
			},
		},
		{
			msg: "overrides",
			give: `
services:
  users:
    uris: http://a.example.com, http://b.example.com
    client:
      maxAttempts: 5
      minBackoff: 50ms
      retryBudget:
        ratio: 0.5
        period: 30s
    balancer:
      consecutiveFailures: 2
      maxBackoff: 1m
  orders:
    uris: https://orders.example.com/v2
`,
			want: map[string]ServiceConfig{
				"users": func() ServiceConfig {
					c := DefaultServiceConfig()
					c.URIs = "http://a.example.com, http://b.example.com"
					c.Client.MaxAttempts = 5
					c.Client.MinBackoff = 50 * time.Millisecond
					c.Client.RetryBudget.Ratio = 0.5
					c.Client.RetryBudget.Period = 30 * time.Second
					c.Balancer.ConsecutiveFailures = 2
					c.Balancer.MaxBackoff = time.Minute
					return c
				}(),
				"orders": func() ServiceConfig {
					c := DefaultServiceConfig()
					c.URIs = "https://orders.example.com/v2"
					return c
				}(),
			},
		},
		{
			msg: "bad duration",
			give: `
services:
  users:
    client:
      minBackoff: soon
`,
			wantErr: []string{`failed to decode service "users"`, "soon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, err := decodeYAML(t, tt.give)
			if len(tt.wantErr) > 0 {
				require.Error(t, err)
				for _, msg := range tt.wantErr {
					assert.Contains(t, err.Error(), msg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Services)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		msg     string
		give    string
		wantErr []string
	}{
		{
			msg: "valid",
			give: `
services:
  users:
    uris: http://a.example.com
`,
		},
		{
			msg:     "no services",
			give:    `services: {}`,
			wantErr: []string{"no services configured"},
		},
		{
			msg: "every problem of every service",
			give: `
services:
  orders:
    uris: not-a-uri
    balancer:
      consecutiveFailures: 0
  users:
    client:
      maxAttempts: 0
      retryBudget:
        period: 2m
`,
			wantErr: []string{
				`service "orders": `,
				"not-a-uri",
				"invalid consecutive failures 0",
				`service "users": invalid max attempts 0`,
				`service "users": invalid retry budget period 2m0s`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cfg, err := decodeYAML(t, tt.give)
			require.NoError(t, err)

			err = cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.wantErr {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestStaticURIs(t *testing.T) {
	c := DefaultServiceConfig()
	uris, err := c.StaticURIs()
	require.NoError(t, err)
	assert.Empty(t, uris)

	c.URIs = "http://a.example.com, http://b.example.com"
	uris, err = c.StaticURIs()
	require.NoError(t, err)
	require.Len(t, uris, 2)
	assert.Equal(t, "b.example.com", uris[1].Host)
}

func writeFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "balancer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
services:
  users:
    uris: http://a.example.com
    client:
      maxAttempts: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Services, "users")
	users := cfg.Services["users"]
	assert.Equal(t, 2, users.Client.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, users.Client.MinBackoff)
	assert.Equal(t, balancer.DefaultConfig(), users.Balancer)

	t.Run("overrides", func(t *testing.T) {
		cfg, err := Load(path, WithOverrides(map[string]interface{}{
			"services.users.client.maxAttempts": 4,
			"services.users.balancer.minBackoff": "1s",
		}))
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Services["users"].Client.MaxAttempts)
		assert.Equal(t, time.Second, cfg.Services["users"].Balancer.MinBackoff)
		assert.Equal(t, "http://a.example.com", cfg.Services["users"].URIs)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope.yaml")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Load(writeFile(t, `
services:
  users:
    client:
      maxAttempts: 0
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `service "users": invalid max attempts 0`)
	})
}
