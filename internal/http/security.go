package http

import (
	"fmt"
	"net"
	"net/http"

	"lin/internal/log"
)

// trustedNetworks may call the mutating admin endpoints.
var trustedNetworks = []*net.IPNet{
	parsecidr("127.0.0.0/8"),
	parsecidr("::1/128"),
	parsecidr("10.0.0.0/8"),
	parsecidr("172.16.0.0/12"),
	parsecidr("192.168.0.0/16"),
}

func parsecidr(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted CIDR %s: %v", cidr, err))
	}
	return network
}

func isTrusted(ip net.IP) bool {
	for _, network := range trustedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// remoteIP is the direct peer address. Forwarding headers are ignored:
// the admin server is not meant to sit behind a proxy.
func remoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// requireTrusted rejects callers outside trustedNetworks.
func requireTrusted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)
		if ip == nil || !isTrusted(ip) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected admin request from untrusted address",
				"remote_addr", r.RemoteAddr, log.FieldPath, r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
