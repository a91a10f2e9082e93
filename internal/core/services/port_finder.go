package services

import (
	"fmt"
	"net"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// FindAvailablePort returns the first port in [startPort, endPort] that can
// be bound on the loopback interface. Used by "mcp serve --http".
func FindAvailablePort(startPort, endPort int) (int, error) {
	if startPort <= 0 || endPort > 65535 || startPort > endPort {
		return 0, fmt.Errorf("%w: port range %d-%d", domain.ErrInvalidInput, startPort, endPort)
	}
	for port := startPort; port <= endPort; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		listener.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no available port in range %d-%d", startPort, endPort)
}
