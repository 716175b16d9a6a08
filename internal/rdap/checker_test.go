package rdap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guc1/domain-agent/internal/core"
)

// rdapFixture runs a fake RDAP server plus a bootstrap registry pointing .com
// and .io at it. registered names answer 200, everything else 404.
func rdapFixture(t *testing.T, registered map[string]bool) (*Bootstrap, *int) {
	t.Helper()

	lookups := 0
	rdapSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups++
		name := r.URL.Path[len("/domain/"):]
		if registered[name] {
			fmt.Fprintf(w, `{"objectClassName":"domain","ldhName":%q}`, name)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(rdapSrv.Close)

	bootSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{
			"version": "1.0",
			"services": [
				[["com", "io"], ["http://insecure.example", %q]],
				[["dev"], []]
			]
		}`, rdapSrv.URL)
	}))
	t.Cleanup(bootSrv.Close)

	return NewBootstrap(bootSrv.URL, nil), &lookups
}

func TestChecker_Check(t *testing.T) {
	bootstrap, _ := rdapFixture(t, map[string]bool{"beanbase.com": true})
	checker := NewChecker(bootstrap, 0, core.NopLogger{})

	status, err := checker.Check(context.Background(), "beanbase.com")
	require.NoError(t, err)
	assert.Equal(t, core.StatusTaken, status)

	status, err = checker.Check(context.Background(), "brewbox.com")
	require.NoError(t, err)
	assert.Equal(t, core.StatusAvailable, status)
}

func TestChecker_CheckNormalizesName(t *testing.T) {
	bootstrap, _ := rdapFixture(t, map[string]bool{"beanbase.com": true})
	checker := NewChecker(bootstrap, 0, core.NopLogger{})

	status, err := checker.Check(context.Background(), "  BeanBase.COM. ")
	require.NoError(t, err)
	assert.Equal(t, core.StatusTaken, status)
}

func TestChecker_CheckUnknownTLD(t *testing.T) {
	bootstrap, lookups := rdapFixture(t, nil)
	checker := NewChecker(bootstrap, 0, core.NopLogger{})

	// .xyz is absent from the registry: available, no lookup attempted.
	status, err := checker.Check(context.Background(), "brewbox.xyz")
	require.NoError(t, err)
	assert.Equal(t, core.StatusAvailable, status)
	assert.Equal(t, 0, *lookups)
}

func TestChecker_CheckNoTLD(t *testing.T) {
	bootstrap, _ := rdapFixture(t, nil)
	checker := NewChecker(bootstrap, 0, core.NopLogger{})

	_, err := checker.Check(context.Background(), "brewbox")
	assert.Error(t, err)
	_, err = checker.Check(context.Background(), "")
	assert.Error(t, err)
}

func TestChecker_CheckBootstrapUnreachable(t *testing.T) {
	bootstrap := NewBootstrap("http://127.0.0.1:1", nil)
	checker := NewChecker(bootstrap, 0, core.NopLogger{})

	_, err := checker.Check(context.Background(), "brewbox.com")
	assert.Error(t, err)
}

func TestBootstrap_PrefersHTTPSServer(t *testing.T) {
	bootSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"services": [
				[["com"], ["http://plain.example", "https://secure.example"]]
			]
		}`)
	}))
	t.Cleanup(bootSrv.Close)

	b := NewBootstrap(bootSrv.URL, nil)
	server, err := b.ServerForTLD(context.Background(), "COM")
	require.NoError(t, err)
	assert.Equal(t, "https://secure.example", server)
}

func TestBootstrap_LoadsOnce(t *testing.T) {
	fetches := 0
	bootSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		fmt.Fprint(w, `{"services": [[["com"], ["https://secure.example"]]]}`)
	}))
	t.Cleanup(bootSrv.Close)

	b := NewBootstrap(bootSrv.URL, nil)
	for i := 0; i < 3; i++ {
		_, err := b.ServerForTLD(context.Background(), "com")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetches)
}
