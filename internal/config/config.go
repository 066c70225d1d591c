package config

import "github.com/zeromicro/go-zero/rest"

type NetworkConf struct {
	Name     string `json:"Name"`
	RpcUrl   string `json:"RpcUrl"`
	ChainId  int64  `json:"ChainId"`
	Symbol   string `json:"Symbol,default=ETH"`
	Explorer string `json:"Explorer,optional"`
	Testnet  bool   `json:"Testnet,default=false"`
}

type Config struct {
	rest.RestConf
	Postgres struct {
		DSN string
	}
	Auth struct {
		Secret string
	}
	Reconcile struct {
		IntervalSeconds int `json:",default=30"`
	}
	Confirm struct {
		TimeoutSeconds int `json:",default=60"`
	}
	// Networks maps a network id (e.g., "sepolia") to its configuration.
	Networks map[string]NetworkConf
}
