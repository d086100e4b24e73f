package theoddsapi

import "testing"

// SetBaseURLForTest overrides the upstream base URL, for pointing a Client
// at an httptest.Server. Only compiled for tests (export_test.go convention)
// so the production binary never links "testing".
func SetBaseURLForTest(t *testing.T, c *Client, url string) {
	t.Helper()
	c.baseURL = url
}
