// Package api 處理 HTTP 請求路由和處理。
//
// 房間的建立與查詢走一般的 HTTP 端點，房間內的即時互動則在升級後的 WebSocket 連接上進行。
package api
