// Package useragent loads the list of User-Agent strings used to vary the
// outbound HTTP identity of the prober.
package useragent

import (
	"math/rand"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Pool is a non-empty set of User-Agent strings.
type Pool struct {
	agents []string
}

// Load reads newline-delimited User-Agent values from path. A missing or
// unreadable file degrades to a single-entry pool holding the configured
// fallback; Load never fails.
func Load(path, fallback string, logger *logrus.Logger) *Pool {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warnf("can't read User-Agent file %s, falling back to default: %v", path, err)
		return &Pool{agents: []string{fallback}}
	}

	var agents []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			agents = append(agents, line)
		}
	}
	if len(agents) == 0 {
		logger.Warnf("User-Agent file %s is empty, falling back to default", path)
		return &Pool{agents: []string{fallback}}
	}

	return &Pool{agents: agents}
}

// Sample returns one User-Agent chosen uniformly at random.
func (p *Pool) Sample() string {
	return p.agents[rand.Intn(len(p.agents))]
}

// Size returns the number of loaded User-Agent strings.
func (p *Pool) Size() int {
	return len(p.agents)
}
