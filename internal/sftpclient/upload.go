package sftpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type Config struct {
	Host      string
	Port      int
	User      string
	Pass      string
	RemoteDir string
	// KnownHostsFile verifies the server key. Without it the upload is
	// refused unless InsecureIgnoreHostKey is set.
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
}

var errNoHostKeyCheck = errors.New("sftp: set SFTP_KNOWN_HOSTS or SFTP_INSECURE_IGNORE_HOST_KEY")

func (cfg Config) withDefaults() Config {
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}
	return cfg
}

func (cfg Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: known hosts: %w", err)
		}
		return cb, nil
	}
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return nil, errNoHostKeyCheck
}

// UploadFile publishes a local file as remoteFileName in cfg.RemoteDir.
func UploadFile(ctx context.Context, cfg Config, localPath string, remoteFileName string) error {
	if err := validate(cfg); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	return Upload(ctx, cfg, src, remoteFileName)
}

// Upload streams r to a temporary remote file and renames it into place, so
// readers of remoteFileName never see a partial listing.
func Upload(ctx context.Context, cfg Config, r io.Reader, remoteFileName string) error {
	if err := validate(cfg); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	cb, err := cfg.hostKeyCallback()
	if err != nil {
		return err
	}

	sshClient, err := dial(ctx, cfg, cb)
	if err != nil {
		return err
	}
	defer sshClient.Close()

	sftpCli, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("sftp: new client: %w", err)
	}
	defer sftpCli.Close()

	if err := sftpCli.MkdirAll(cfg.RemoteDir); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", cfg.RemoteDir, err)
	}

	finalPath := path.Join(cfg.RemoteDir, remoteFileName)
	tmpPath := finalPath + ".part"

	dst, err := sftpCli.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = sftpCli.Remove(tmpPath)
		return fmt.Errorf("sftp: upload copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = sftpCli.Remove(tmpPath)
		return fmt.Errorf("sftp: close remote file: %w", err)
	}

	if err := sftpCli.PosixRename(tmpPath, finalPath); err != nil {
		// servers without the posix-rename extension
		_ = sftpCli.Remove(finalPath)
		if err := sftpCli.Rename(tmpPath, finalPath); err != nil {
			return fmt.Errorf("sftp: rename into place: %w", err)
		}
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return fmt.Errorf("sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS")
	}
	return nil
}

func dial(ctx context.Context, cfg Config, cb ssh.HostKeyCallback) (*ssh.Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sftp: dial error: %w", err)
	}

	// the handshake itself has no ctx; bound it with a deadline
	deadline := time.Now().Add(20 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: cb,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}
