package core

import (
	"fmt"
	"log"
	"net"
)

// ClaimPort binds the first free TCP port in [start, end] on 127.0.0.1 and
// returns the bound listener. Ownership transfers to the caller, who
// typically hands it straight to SeedServer.Start — the Go equivalent of
// the reference allocator's claim()/takeFd() pair, since a net.Listener
// value already carries the bound file descriptor.
func ClaimPort(start, end int) (net.Listener, int, error) {
	for port := start; port <= end; port++ {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		return ln, port, nil
	}
	log.Printf("portalloc: no free port in [%d, %d]", start, end)
	return nil, 0, fmt.Errorf("core: no free port in [%d, %d]", start, end)
}
