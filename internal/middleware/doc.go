// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 目前包含 session token 驗證與以 zerolog 記錄請求的中間件。
package middleware
