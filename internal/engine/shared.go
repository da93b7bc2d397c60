// ABOUTME: Discovery and binding of shared MATLAB instances via descriptor files.
// ABOUTME: Shared workers advertise a TCP address in a well-known directory.

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SessionDescriptor is the JSON document a shared worker writes into the
// discovery directory to opt into being listed.
type SessionDescriptor struct {
	Name      string    `json:"name"`
	Addr      string    `json:"addr"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// FileRegistry implements Registry backed by a discovery directory of
// session descriptor files plus a Launcher for local instances.
type FileRegistry struct {
	// Dir is the discovery directory. A missing directory means no shared
	// instances, not an error.
	Dir string
	// Launcher starts local workers for CreateLocal.
	Launcher *Launcher
	// DialTimeout bounds the TCP connect to a shared worker.
	DialTimeout time.Duration
}

const defaultDialTimeout = 10 * time.Second

// EnumerateShared lists descriptor names in the discovery directory, sorted.
func (r *FileRegistry) EnumerateShared() ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading discovery directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// BindShared connects to the named shared instance over TCP and verifies it
// responds. A descriptor pointing at a dead worker yields a connection error;
// the stale file is left for its owner to clean up.
func (r *FileRegistry) BindShared(ctx context.Context, name string) (Handle, error) {
	desc, err := r.readDescriptor(name)
	if err != nil {
		return nil, err
	}

	timeout := r.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	d := net.Dialer{Timeout: timeout}
	netConn, err := d.DialContext(ctx, "tcp", desc.Addr)
	if err != nil {
		return nil, fmt.Errorf("dialing shared session %q at %s: %w", name, desc.Addr, err)
	}

	c := newConn(netConn, nil)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ping(pingCtx, c); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("shared session %q not responding: %w", name, err)
	}
	return c, nil
}

// CreateLocal starts a fresh local worker.
func (r *FileRegistry) CreateLocal(ctx context.Context) (Handle, error) {
	if r.Launcher == nil {
		return nil, fmt.Errorf("no launcher configured for local sessions")
	}
	return r.Launcher.Start(ctx)
}

func (r *FileRegistry) readDescriptor(name string) (*SessionDescriptor, error) {
	path := filepath.Join(r.Dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session descriptor %q: %w", name, err)
	}
	var desc SessionDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing session descriptor %q: %w", name, err)
	}
	if desc.Addr == "" {
		return nil, fmt.Errorf("session descriptor %q has no address", name)
	}
	return &desc, nil
}
