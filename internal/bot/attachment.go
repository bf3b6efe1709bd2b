package bot

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

var errAttachmentRefused = errors.New("attachment address refused")

// checkAttachmentURL accepts https URLs on an allowed upload host. An empty
// hosts list accepts any host name; the dialer still refuses private
// addresses.
func checkAttachmentURL(raw string, hosts []string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", errAttachmentRefused, err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("%w: scheme %q", errAttachmentRefused, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" {
		return fmt.Errorf("%w: host %q", errAttachmentRefused, host)
	}
	if len(hosts) == 0 {
		return nil
	}
	for _, h := range hosts {
		if strings.EqualFold(strings.TrimSpace(h), host) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q is not an upload host", errAttachmentRefused, host)
}

// NewAttachmentClient returns the client used to download chat attachments.
// It never connects to loopback, private, link-local or unspecified
// addresses, checked after DNS resolution, and only follows https redirects.
func NewAttachmentClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || blockedIP(ip) {
				return fmt.Errorf("%w: %s", errAttachmentRefused, host)
			}
			return nil
		},
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			if req.URL.Scheme != "https" {
				return fmt.Errorf("%w: redirect to %s", errAttachmentRefused, req.URL.Scheme)
			}
			return nil
		},
	}
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}
