package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
)

func main() {
	// 1. 定义命令行参数
	action := flag.String("action", "account_create", "要执行的操作 (account_create, account_import, wallet_create)")
	name := flag.String("name", "My-CLI-Account", "账户/钱包名称")
	mnemonic := flag.String("mnemonic", "", "导入账户时的助记词")
	accountId := flag.String("account", "", "创建钱包时的账户 ID")
	network := flag.String("network", "sepolia", "创建钱包时的目标网络")
	token := flag.String("token", "", "auth_token cookie 的值")
	flag.Parse()

	// 2. 根据操作选择目标 API 地址和请求数据
	var url string
	var requestData map[string]interface{}

	switch *action {
	case "account_create":
		url = "http://localhost:8888/api/account/create"
		requestData = map[string]interface{}{"name": *name}
	case "account_import":
		url = "http://localhost:8888/api/account/import"
		requestData = map[string]interface{}{"mnemonic": *mnemonic}
	case "wallet_create":
		url = "http://localhost:8888/api/wallet/create"
		requestData = map[string]interface{}{
			"account_id": *accountId,
			"name":       *name,
			"network":    *network,
		}
	default:
		log.Fatalf("错误: 不支持的操作 %s", *action)
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		log.Fatalf("错误: 无法打包 JSON 数据: %v", err)
	}

	// 3. 创建并发送 HTTP POST 请求
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Fatalf("错误: 无法创建请求: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: *token})

	client := &http.Client{}
	fmt.Printf("正向 %s 发送请求...\n", url)
	fmt.Printf("请求体: %s\n", string(jsonData))

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("错误: 发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	// 4. 读取并打印响应结果
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("错误: 读取响应体失败: %v", err)
	}

	fmt.Println("\n--- 响应结果 ---")
	fmt.Printf("HTTP 状态码: %d\n", resp.StatusCode)
	fmt.Printf("响应体: %s\n", string(body))
}
