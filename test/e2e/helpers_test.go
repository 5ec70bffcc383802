package e2e

import (
	"testing"

	"github.com/marmos91/dittoweb/test/e2e/framework"
)

// site is the document tree every server in this suite starts with.
var site = map[string][]byte{
	"/index.html":           []byte("<html><body>home</body></html>"),
	"/docs/index.html":      []byte("<html><body>docs</body></html>"),
	"/docs/guide.htm":       []byte("<p>guide</p>"),
	"/img/logo.png":         {0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00},
	"/img/photo.jpg":        {0xff, 0xd8, 0xff, 0xe0},
	"/img/anim.gif":         []byte("GIF89a"),
	"/notes.txt":            []byte("plain notes\n"),
	"/my docs/space in.txt": []byte("spaced"),
}

// runOnAllStores runs fn against a fresh server for each store type.
func runOnAllStores(t *testing.T, cfg framework.TestServerConfig, fn func(t *testing.T, ts *framework.TestServer)) {
	t.Helper()

	for _, storeType := range framework.AllStoreTypes {
		t.Run(string(storeType), func(t *testing.T) {
			cfg := cfg
			cfg.Store = storeType
			if cfg.Documents == nil {
				cfg.Documents = site
			}

			ts := framework.NewTestServer(t, cfg)
			if err := ts.Start(); err != nil {
				t.Fatalf("Failed to start server: %v", err)
			}
			t.Cleanup(ts.Stop)

			fn(t, ts)
		})
	}
}
