// Package ssh forwards a local port to a database server through an SSH
// bastion host.
//
// The tunnel listens on a random loopback port and dials the database
// through the SSH client for every accepted connection. Only key-based
// authentication is supported (with optional passphrase).
package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"golang.org/x/crypto/ssh"
)

// Addr is the local tunnel endpoint.
type Addr struct {
	Host string
	Port int
}

// Tunnel manages one SSH local port forward.
type Tunnel struct {
	sshConfig  *ssh.ClientConfig
	sshAddr    string // bastion:22
	remoteAddr string // db-host:1433

	client   *ssh.Client
	listener net.Listener
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewTunnel prepares a tunnel to dbHost:dbPort. It does not connect.
func NewTunnel(cfg config.SSHConfig, dbHost string, dbPort int) (*Tunnel, error) {
	authMethods, err := buildAuthMethods(cfg)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}

	return &Tunnel{
		sshConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            authMethods,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against ~/.ssh/known_hosts
		},
		sshAddr:    net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		remoteAddr: net.JoinHostPort(dbHost, strconv.Itoa(dbPort)),
		done:       make(chan struct{}),
	}, nil
}

// Start dials the bastion and begins forwarding. The returned address is
// where the database driver should connect.
func (t *Tunnel) Start(ctx context.Context) (*Addr, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", t.sshAddr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", t.sshAddr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, t.sshAddr, t.sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", t.sshAddr, err)
	}
	t.client = ssh.NewClient(c, chans, reqs)

	t.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.client.Close()
		return nil, fmt.Errorf("local listen: %w", err)
	}

	tcpAddr := t.listener.Addr().(*net.TCPAddr)
	applog.Event("ssh", "tunnel 127.0.0.1:%d -> %s via %s", tcpAddr.Port, t.remoteAddr, t.sshAddr)

	t.wg.Add(1)
	go t.acceptLoop()

	return &Addr{Host: "127.0.0.1", Port: tcpAddr.Port}, nil
}

// Stop tears down the tunnel. Safe to call more than once.
func (t *Tunnel) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		if t.listener != nil {
			t.listener.Close()
		}
		t.wg.Wait()
		if t.client != nil {
			t.client.Close()
		}
	})
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		localConn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		t.wg.Add(1)
		go t.forward(localConn)
	}
}

func (t *Tunnel) forward(localConn net.Conn) {
	defer t.wg.Done()
	defer localConn.Close()

	remoteConn, err := t.client.Dial("tcp", t.remoteAddr)
	if err != nil {
		applog.Error("ssh forward to %s: %v", t.remoteAddr, err)
		return
	}
	defer remoteConn.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remoteConn, localConn)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(localConn, remoteConn)
		done <- struct{}{}
	}()
	<-done
}

func buildAuthMethods(cfg config.SSHConfig) ([]ssh.AuthMethod, error) {
	if cfg.KeyPath == "" {
		return nil, errors.New("no SSH authentication methods configured (set an SSH key path)")
	}

	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", cfg.KeyPath, err)
	}

	var signer ssh.Signer
	if cfg.KeyPassphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(cfg.KeyPassphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}
