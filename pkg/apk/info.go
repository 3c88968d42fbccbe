package apk

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"
)

// Info is the metadata extracted from a single APK artifact.
type Info struct {
	PackageID   string    `json:"package_id" yaml:"package_id"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	VersionName string    `json:"version_name,omitempty" yaml:"version_name,omitempty"`
	VersionCode int64     `json:"version_code,omitempty" yaml:"version_code,omitempty"`
	MinSDK      int       `json:"min_sdk,omitempty" yaml:"min_sdk,omitempty"`
	TargetSDK   int       `json:"target_sdk,omitempty" yaml:"target_sdk,omitempty"`
	Permissions []string  `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	ABIs        []string  `json:"abis,omitempty" yaml:"abis,omitempty"`
	Densities   []string  `json:"densities,omitempty" yaml:"densities,omitempty"`
	FilePath    string    `json:"file" yaml:"file"`
	Size        int64     `json:"size,omitempty" yaml:"size,omitempty"`
	ModTime     time.Time `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
	MD5         string    `json:"md5,omitempty" yaml:"md5,omitempty"`
	SHA1        string    `json:"sha1,omitempty" yaml:"sha1,omitempty"`
	SHA256      string    `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	ParsedBy    string    `json:"parsed_by,omitempty" yaml:"parsed_by,omitempty"`
}

// DisplayLabel returns the best human-readable name for the app.
func (i *Info) DisplayLabel() string {
	if i.Label != "" {
		return i.Label
	}
	return i.PackageID
}

// ComputeHashes fills MD5, SHA1 and SHA256 from the file contents.
func (i *Info) ComputeHashes() error {
	md5sum, sha1sum, sha256sum, err := Hashes(i.FilePath)
	if err != nil {
		return err
	}
	i.MD5 = md5sum
	i.SHA1 = sha1sum
	i.SHA256 = sha256sum
	return nil
}

// Hashes calculates md5, sha1 and sha256 of a file in a single read pass.
func Hashes(path string) (md5sum, sha1sum, sha256sum string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", "", err
	}
	defer file.Close()

	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()

	if _, err := io.Copy(io.MultiWriter(md5Hash, sha1Hash, sha256Hash), file); err != nil {
		return "", "", "", err
	}

	return hex.EncodeToString(md5Hash.Sum(nil)),
		hex.EncodeToString(sha1Hash.Sum(nil)),
		hex.EncodeToString(sha256Hash.Sum(nil)), nil
}
