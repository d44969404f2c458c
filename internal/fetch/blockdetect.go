package fetch

import (
	"bytes"
	"net/http"
)

// BlockType describes an anti-bot page served in place of results.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

// DetectBlock reports whether a 2xx page looks like a challenge or captcha
// rather than search results.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}
	if resp.Header.Get("cf-mitigated") == "challenge" {
		return true, BlockCloudflare
	}

	lower := bytes.ToLower(body)
	if bytes.Contains(lower, []byte("checking your browser")) ||
		bytes.Contains(lower, []byte("cf-browser-verification")) ||
		bytes.Contains(lower, []byte("cf-challenge")) {
		return true, BlockCloudflare
	}
	if bytes.Contains(lower, []byte("captcha")) &&
		(bytes.Contains(lower, []byte("robot")) || bytes.Contains(lower, []byte("verify"))) {
		return true, BlockCaptcha
	}
	return false, BlockNone
}
