// Package certs points the process at the system CA bundle on hosts where
// Go would not find it on its own, such as minimal container images that
// ship certificates in a non-standard location.
package certs

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	EnvCertFile = "SSL_CERT_FILE"
	EnvCertDir  = "SSL_CERT_DIR"
)

// DefaultRoots are the directories searched for CA material.
var DefaultRoots = []string{
	"/var/ssl",
	"/usr/share/ssl",
	"/usr/local/ssl",
	"/usr/local/openssl",
	"/usr/local/etc/openssl",
	"/usr/local/share",
	"/usr/lib/ssl",
	"/usr/ssl",
	"/etc/openssl",
	"/etc/pki/ca-trust/extracted/pem",
	"/etc/pki/tls",
	"/etc/ssl",
	"/etc/certs",
	"/opt/etc/ssl",
	"/data/data/com.termux/files/usr/etc/tls",
	"/boot/system/data/ssl",
}

// bundleNames are the CA bundle file names looked for under each root.
var bundleNames = []string{
	"cert.pem",
	"certs.pem",
	"ca-bundle.pem",
	"cacert.pem",
	"ca-certificates.crt",
	"certs/ca-certificates.crt",
	"certs/ca-root-nss.crt",
	"certs/ca-bundle.crt",
	"CARootCertificates.pem",
	"tls-ca-bundle.pem",
}

type Result struct {
	File string
	Dir  string
}

func (r Result) Found() bool {
	return r.File != "" || r.Dir != ""
}

// Probe returns the first CA bundle file and the first certs directory
// found under roots.
func Probe(roots []string) Result {
	var res Result
	for _, root := range roots {
		if res.File == "" {
			for _, name := range bundleNames {
				if path := filepath.Join(root, name); isFile(path) {
					res.File = path
					break
				}
			}
		}
		if res.Dir == "" {
			if dir := filepath.Join(root, "certs"); isDir(dir) {
				res.Dir = dir
			}
		}
		if res.File != "" && res.Dir != "" {
			break
		}
	}
	return res
}

// InitEnv sets SSL_CERT_FILE and SSL_CERT_DIR from Probe(DefaultRoots)
// unless they are already set. It has to run before the first TLS
// connection since crypto/x509 reads them only once.
func InitEnv(logger *zap.Logger) Result {
	return initEnv(logger, DefaultRoots)
}

func initEnv(logger *zap.Logger, roots []string) Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := Probe(roots)
	if !res.Found() {
		logger.Warn("no CA bundle found", zap.Strings("roots", roots))
		return res
	}

	if res.File != "" && os.Getenv(EnvCertFile) == "" {
		if err := os.Setenv(EnvCertFile, res.File); err != nil {
			logger.Warn("set cert file", zap.Error(err))
		}
	}
	if res.Dir != "" && os.Getenv(EnvCertDir) == "" {
		if err := os.Setenv(EnvCertDir, res.Dir); err != nil {
			logger.Warn("set cert dir", zap.Error(err))
		}
	}

	logger.Debug("probed CA certificates",
		zap.String("file", os.Getenv(EnvCertFile)),
		zap.String("dir", os.Getenv(EnvCertDir)),
	)

	return res
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
