// Package avatar はユーザーアバターの生成と検証を提供する。
// アバター未指定時はイニシャルから生成されるプレースホルダーURLを使用し、
// 外部URL指定時はSSRF防止付きクライアントで画像であることを確認する。
package avatar

import (
	"fmt"
	"net/url"
	"strings"
)

// placeholderBaseURL はイニシャルからアバター画像を生成する外部サービスのURL。
const placeholderBaseURL = "https://ui-avatars.com/api/"

// PlaceholderURL はユーザー名のイニシャルに基づくプレースホルダーアバターURLを返す。
// 同一の名前に対して常に同一のURLを返す（決定的）。
func PlaceholderURL(name string) string {
	return fmt.Sprintf("%s?name=%s&background=4285F4&color=fff&size=200",
		placeholderBaseURL, url.QueryEscape(name))
}

// IsDataImageURI は値がdata:image形式のインラインアバターかを判定する。
// クライアントからアップロードされた画像はbase64のdata URIとして渡される。
func IsDataImageURI(value string) bool {
	return strings.HasPrefix(value, "data:image")
}
