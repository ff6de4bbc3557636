package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestReadServer(t *testing.T) {
	path := writeTemp(t, "vqn.toml", `
[tls]
key = "./key.pem"
cert = "./cert.pem"
ca_cert = "./ca_cert.pem"

[network]
role = "server"
address = "10.10.0.3/24"
port = 10086

[[network.client]]
client_cert = "./client_cert.pem"
allowed_ips = "10.10.0.1/32"

[[network.client]]
client_cert = "./client_cert2.pem"
allowed_ips = "10.10.0.2/32"
`)

	conf, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if conf.Network.Role != RoleServer {
		t.Fatalf("role = %q, want server", conf.Network.Role)
	}
	if len(conf.Network.Client) != 2 {
		t.Fatalf("len(client) = %d, want 2", len(conf.Network.Client))
	}
	wantCert := filepath.Join(filepath.Dir(path), "client_cert.pem")
	if conf.Network.Client[0].ClientCert != wantCert {
		t.Errorf("client_cert = %q, want %q", conf.Network.Client[0].ClientCert, wantCert)
	}
}

func TestReadClient(t *testing.T) {
	path := writeTemp(t, "vqn.toml", `
[tls]
key = "./key.pem"
cert = "./cert.pem"
ca_cert = "./ca_cert.pem"

[network]
role = "client"
address = "10.10.0.3/24"

[network.server]
url = "https://example.org"
allowed_ips = "0.0.0.0/0, ::/0"
`)

	conf, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if conf.Network.Role != RoleClient {
		t.Fatalf("role = %q, want client", conf.Network.Role)
	}
	if len(conf.Network.Server.AllowedIPs) != 2 {
		t.Fatalf("len(allowed_ips) = %d, want 2", len(conf.Network.Server.AllowedIPs))
	}
}

func TestValidateRejectsMissingPeers(t *testing.T) {
	path := writeTemp(t, "vqn.toml", `
[tls]
key = "k"
cert = "c"
ca_cert = "ca"

[network]
role = "server"
address = "10.10.0.3/24"
`)
	if _, err := Read(path); err == nil {
		t.Fatal("expected error for server role with no clients")
	}
}

func TestCidrNetmask(t *testing.T) {
	cases := []struct {
		prefix int
		want   [4]byte
	}{
		{32, [4]byte{255, 255, 255, 255}},
		{24, [4]byte{255, 255, 255, 0}},
		{16, [4]byte{255, 255, 0, 0}},
		{8, [4]byte{255, 0, 0, 0}},
		{0, [4]byte{0, 0, 0, 0}},
	}
	for _, tc := range cases {
		c, err := ParseCidr("0.0.0.0/" + strconv.Itoa(tc.prefix))
		if err != nil {
			t.Fatalf("ParseCidr: %v", err)
		}
		if got := c.Netmask(); got != tc.want {
			t.Errorf("netmask(/%d) = %v, want %v", tc.prefix, got, tc.want)
		}
	}
}

func TestCidrRoundTrip(t *testing.T) {
	for _, s := range []string{"10.10.0.2/32", "10.0.0.0/8", "::/0", "fd00::1/64"} {
		c, err := ParseCidr(s)
		if err != nil {
			t.Fatalf("ParseCidr(%q): %v", s, err)
		}
		if got := c.String(); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestAllowedIPsRoundTrip(t *testing.T) {
	in := "10.0.0.0/8, 10.1.0.0/16"
	a, err := ParseAllowedIPs(in)
	if err != nil {
		t.Fatalf("ParseAllowedIPs: %v", err)
	}
	if len(a) != 2 {
		t.Fatalf("len = %d, want 2", len(a))
	}
	a2, err := ParseAllowedIPs(a.String())
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if a.String() != a2.String() {
		t.Errorf("round trip mismatch: %q != %q", a.String(), a2.String())
	}
}

func TestParseCidrRejectsOversizedPrefix(t *testing.T) {
	if _, err := ParseCidr("10.0.0.0/33"); err == nil {
		t.Fatal("expected error for /33 IPv4 prefix")
	}
}
