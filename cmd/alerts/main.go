// 納期アラートサービスのエントリポイント。
// 注文スナップショットから期限超過・期限間近のアラートを導出し、
// 既読管理付きの一覧APIとメッセージ送信APIを提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/orderwatch/internal/alerts"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server, err := alerts.NewServer(port)
	if err != nil {
		log.Fatalf("アラートサーバーの初期化に失敗: %v", err)
	}
	defer server.Stop()

	log.Printf("アラートサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("アラートサービスの起動に失敗: %v", err)
	}
}
