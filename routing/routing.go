// Package routing implements RFC 3261 §18.2.2 response-destination
// derivation and loose-routing route-set application for in-dialog
// requests (§4.9).
package routing

import (
	"fmt"
	"strconv"

	"github.com/gosipua/sipua/sip"
)

// ResponseDestination derives (host, port) for sending resp, per RFC 3261
// §18.2.2: host is the Via's received parameter if present, else Via.host;
// port is the parsed rport value if present and non-empty, else Via.port,
// else 5060. IPv6 bracket syntax in Via.host is preserved verbatim.
func ResponseDestination(resp *sip.Response) (host string, port int, err error) {
	via := resp.TopVia()
	if via == nil {
		return "", 0, fmt.Errorf("routing: response has no Via header")
	}

	host = via.Host
	if received := via.Received(); received != "" {
		host = received
	}

	port = via.Port
	if port == 0 {
		port = 5060
	}
	if rportVal, present := via.RPort(); present && rportVal != "" {
		if p, convErr := strconv.Atoi(rportVal); convErr == nil {
			port = p
		}
	}

	return host, port, nil
}

// ApplyRouteSet returns the request-URI and ordered Route header values an
// in-dialog request must carry, given the dialog's remote_target and
// route_set (§4.9). Loose routing only: this core does not implement the
// strict-routing URI/Route swap (decided per the deliberate design
// limitation this package documents, not a silent omission).
func ApplyRouteSet(remoteTarget *sip.URI, routeSet []string) (requestURI *sip.URI, routes []string) {
	routes = make([]string, len(routeSet))
	copy(routes, routeSet)
	return remoteTarget, routes
}
