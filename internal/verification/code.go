// Package verification はワンタイムコードによる学校メール認証を提供する。
package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet は認証コードに使用する文字集合。
// 0は1やOと見間違えやすいため含めない。
const codeAlphabet = "123456789"

// GenerateCode は指定長の認証コードを生成する。
// 各桁はcodeAlphabetから一様に選ばれる。
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
