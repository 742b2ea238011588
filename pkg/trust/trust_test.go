package trust_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/streamgate-io/streamgate-go/internal/testcerts"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

func TestLoaderMaterial(t *testing.T) {
	auth := testcerts.NewAuthority(t, "trust-test-ca")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)

	loader := trust.NewLoader(cfg)
	if !loader.Configured() {
		t.Fatal("Configured() = false with both paths set")
	}

	m, err := loader.Material()
	if err != nil {
		t.Fatalf("Material() error = %v", err)
	}

	if m.Leaf == nil {
		t.Error("Leaf should not be nil")
	}
	if len(m.Certificate.Certificate) < 2 {
		t.Errorf("chain length = %d, want leaf plus CA", len(m.Certificate.Certificate))
	}
	if m.Certificate.PrivateKey == nil {
		t.Error("PrivateKey should not be nil")
	}
	if m.Roots == nil {
		t.Error("Roots should not be nil")
	}
	if len(m.RootCerts) != 1 {
		t.Errorf("RootCerts length = %d, want 1", len(m.RootCerts))
	}
	if got := len(m.LeafFingerprint()); got != 64 {
		t.Errorf("LeafFingerprint length = %d, want 64 hex chars", got)
	}
}

func TestLoaderNotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  trust.Config
	}{
		{name: "nothing set", cfg: trust.Config{}},
		{name: "keystore only", cfg: trust.Config{KeystorePath: "/tmp/ks.p12"}},
		{name: "truststore only", cfg: trust.Config{TruststorePath: "/tmp/ts.p12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := trust.NewLoader(tt.cfg)
			if loader.Configured() {
				t.Error("Configured() = true, want false")
			}
			m, err := loader.Material()
			if !errors.Is(err, trust.ErrNotConfigured) {
				t.Errorf("Material() error = %v, want ErrNotConfigured", err)
			}
			if m != nil {
				t.Error("Material() returned partial material on error")
			}
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	auth := testcerts.NewAuthority(t, "trust-test-ca")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)

	if err := os.Remove(cfg.TruststorePath); err != nil {
		t.Fatalf("remove truststore: %v", err)
	}

	m, err := trust.NewLoader(cfg).Material()
	if !errors.Is(err, trust.ErrMissingFile) {
		t.Fatalf("Material() error = %v, want ErrMissingFile", err)
	}
	if m != nil {
		t.Error("Material() returned partial material on error")
	}

	// The error names the missing file but never a password.
	if !strings.Contains(err.Error(), cfg.TruststorePath) {
		t.Errorf("error %q does not name the missing path", err)
	}
	if strings.Contains(err.Error(), testcerts.Password) {
		t.Errorf("error %q leaks the store password", err)
	}
}

func TestLoaderWrongPassword(t *testing.T) {
	auth := testcerts.NewAuthority(t, "trust-test-ca")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)
	cfg.KeystorePassword = "hunter2-definitely-wrong"

	_, err := trust.NewLoader(cfg).Material()
	if !errors.Is(err, trust.ErrLoadFailed) {
		t.Fatalf("Material() error = %v, want ErrLoadFailed", err)
	}
	if strings.Contains(err.Error(), cfg.KeystorePassword) {
		t.Errorf("error %q leaks the attempted password", err)
	}
}

func TestLoaderCorruptStore(t *testing.T) {
	auth := testcerts.NewAuthority(t, "trust-test-ca")
	cfg := testcerts.ServerStores(t, t.TempDir(), auth)

	if err := os.WriteFile(cfg.KeystorePath, []byte("not a pkcs12 store"), 0o600); err != nil {
		t.Fatalf("corrupt keystore: %v", err)
	}

	if _, err := trust.NewLoader(cfg).Material(); !errors.Is(err, trust.ErrLoadFailed) {
		t.Errorf("Material() error = %v, want ErrLoadFailed", err)
	}
}

func TestLoaderCachesMaterial(t *testing.T) {
	auth := testcerts.NewAuthority(t, "trust-test-ca")
	loader := trust.NewLoader(testcerts.ServerStores(t, t.TempDir(), auth))

	first, err := loader.Material()
	if err != nil {
		t.Fatalf("first Material() error = %v", err)
	}
	second, err := loader.Material()
	if err != nil {
		t.Fatalf("second Material() error = %v", err)
	}
	if first != second {
		t.Error("Material() built twice, want one shared build")
	}
}

func TestLoaderConcurrentCallersShareBuild(t *testing.T) {
	auth := testcerts.NewAuthority(t, "trust-test-ca")
	loader := trust.NewLoader(testcerts.ServerStores(t, t.TempDir(), auth))

	const callers = 8
	materials := make([]*trust.Material, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := loader.Material()
			if err != nil {
				t.Errorf("Material() error = %v", err)
				return
			}
			materials[i] = m
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if materials[i] != materials[0] {
			t.Fatalf("caller %d got a different Material", i)
		}
	}
}

func TestLoaderFailureNotCached(t *testing.T) {
	auth := testcerts.NewAuthority(t, "trust-test-ca")
	dir := t.TempDir()
	cfg := testcerts.ServerStores(t, dir, auth)

	hidden := filepath.Join(dir, "truststore.hidden")
	if err := os.Rename(cfg.TruststorePath, hidden); err != nil {
		t.Fatalf("hide truststore: %v", err)
	}

	loader := trust.NewLoader(cfg)
	if _, err := loader.Material(); !errors.Is(err, trust.ErrMissingFile) {
		t.Fatalf("Material() error = %v, want ErrMissingFile", err)
	}

	// Restore the store; the loader must attempt a fresh build.
	if err := os.Rename(hidden, cfg.TruststorePath); err != nil {
		t.Fatalf("restore truststore: %v", err)
	}

	if _, err := loader.Material(); err != nil {
		t.Errorf("Material() after restore error = %v, want success", err)
	}
}
