package stdlib

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// registerHash registers hash:* functions. Digests are returned as lowercase
// hex strings.
func (r *Registry) registerHash() {
	r.Register("hash:checksum", hashChecksum)
	r.Register("hash:hmac", hashHMAC)
}

// hashChecksum(data, algorithm). The algorithm defaults to SHA256.
func hashChecksum(args []types.Value) (types.Value, error) {
	if err := requireArgs("hash:checksum", args, 1, 2); err != nil {
		return types.Null, err
	}
	algorithm := "SHA256"
	if len(args) == 2 {
		s, err := stringArg("hash:checksum", args, 1)
		if err != nil {
			return types.Null, err
		}
		algorithm = s
	}
	newHash, err := hashFactory("hash:checksum", algorithm)
	if err != nil {
		return types.Null, err
	}
	h := newHash()
	h.Write(toBytes(args[0]))
	return types.NewString(hex.EncodeToString(h.Sum(nil))), nil
}

// hashHMAC(data, key, algorithm). The algorithm defaults to SHA256.
func hashHMAC(args []types.Value) (types.Value, error) {
	if err := requireArgs("hash:hmac", args, 2, 3); err != nil {
		return types.Null, err
	}
	algorithm := "SHA256"
	if len(args) == 3 {
		s, err := stringArg("hash:hmac", args, 2)
		if err != nil {
			return types.Null, err
		}
		algorithm = s
	}
	newHash, err := hashFactory("hash:hmac", algorithm)
	if err != nil {
		return types.Null, err
	}
	mac := hmac.New(newHash, toBytes(args[1]))
	mac.Write(toBytes(args[0]))
	return types.NewString(hex.EncodeToString(mac.Sum(nil))), nil
}

func hashFactory(name, algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "SHA256":
		return sha256.New, nil
	case "SHA384":
		return sha512.New384, nil
	case "SHA512":
		return sha512.New, nil
	case "MD5":
		return md5.New, nil
	case "SHA1":
		return sha1.New, nil
	}
	return nil, types.NewArgumentError(fmt.Sprintf("%s: unsupported algorithm %q", name, algorithm))
}
