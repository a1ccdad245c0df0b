// Package cluster registers a compaction clerk's identity in ZooKeeper
// so other processes (an admin tool, a peer clerk deciding whether one is
// already running against a given journal directory) can discover it.
// It carries no sharding, routing, or consensus machinery — a clerk owns
// exactly one manifest and needs only to announce itself.
package cluster

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

// ClerkRegistry publishes an ephemeral ZooKeeper node for one clerk
// instance and can list the other clerks currently registered under the
// same root.
type ClerkRegistry struct {
	conn     *zk.Conn
	rootPath string
	local    string
}

// NewClerkRegistry connects to the given ZooKeeper ensemble. localAddr
// identifies this clerk (e.g. "host:port" of its admin API) and becomes
// the name of its ephemeral node under rootPath+"/clerks".
func NewClerkRegistry(servers []string, rootPath, localAddr string) (*ClerkRegistry, error) {
	conn, _, err := zk.Connect(servers, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("cluster: zk connect: %w", err)
	}
	return &ClerkRegistry{conn: conn, rootPath: rootPath, local: localAddr}, nil
}

// Close releases the ZooKeeper session, which also removes this clerk's
// ephemeral registration node.
func (r *ClerkRegistry) Close() error {
	r.conn.Close()
	return nil
}

func (r *ClerkRegistry) ensurePath(path string) error {
	parts := strings.Split(path, "/")
	cur := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = cur + "/" + p
		exists, _, err := r.conn.Exists(cur)
		if err != nil {
			return fmt.Errorf("cluster: check %s: %w", cur, err)
		}
		if !exists {
			if _, err := r.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
				return fmt.Errorf("cluster: create %s: %w", cur, err)
			}
		}
	}
	return nil
}

// RegisterSelf waits for the session to establish, then creates this
// clerk's ephemeral node. It disappears automatically if the process
// dies without calling Close.
func (r *ClerkRegistry) RegisterSelf() error {
	if err := r.waitConnected(10 * time.Second); err != nil {
		return err
	}
	if err := r.ensurePath(r.rootPath + "/clerks"); err != nil {
		return fmt.Errorf("cluster: ensure clerks path: %w", err)
	}

	nodePath := fmt.Sprintf("%s/clerks/%s", r.rootPath, r.local)
	if _, err := r.conn.Create(nodePath, nil, zk.FlagEphemeral, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
		return fmt.Errorf("cluster: create ephemeral node: %w", err)
	}
	return nil
}

// Peers lists the addresses of every currently registered clerk,
// including this one.
func (r *ClerkRegistry) Peers() ([]string, error) {
	children, _, err := r.conn.Children(r.rootPath + "/clerks")
	if err != nil {
		return nil, fmt.Errorf("cluster: list clerks: %w", err)
	}
	return children, nil
}

func (r *ClerkRegistry) waitConnected(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		st := r.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("cluster: zk not connected after %s, state=%v", timeout, st)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
