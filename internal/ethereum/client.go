package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/FrankyKyaw/instapay/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client 支付网关：用公司账户向员工钱包发起链上原生转账
type Client struct {
	client      *ethclient.Client
	privateKey  *ecdsa.PrivateKey
	chainId     *big.Int
	from        common.Address
	sendTimeout time.Duration
}

func Init(cfg config.ChainConfig) (*Client, error) {
	// 连接以太坊客户端
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	// 解析公司账户私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	timeout := time.Duration(cfg.SendTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:      client,
		privateKey:  privateKey,
		chainId:     big.NewInt(cfg.ChainId),
		from:        crypto.PubkeyToAddress(privateKey.PublicKey),
		sendTimeout: timeout,
	}, nil
}

// Send 向指定地址转账，金额单位为milliETH，返回交易哈希
func (c *Client) Send(ctx context.Context, address string, amountMilliEth float64) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid wallet address: %s", address)
	}

	amountWei := MilliEthToWei(amountMilliEth)
	if amountWei.Sign() <= 0 {
		return "", fmt.Errorf("invalid payment amount: %f", amountMilliEth)
	}

	// 转账超时视为支付失败，由调用方决定是否重试
	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	to := common.HexToAddress(address)
	tx := types.NewTransaction(nonce, to, amountWei, 21000, gasPrice, nil)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainId), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// GetAccountAddress 获取公司账户地址
func (c *Client) GetAccountAddress() common.Address {
	return c.from
}

// GetBalance 查询地址余额（wei）
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid wallet address: %s", address)
	}
	return c.client.BalanceAt(ctx, common.HexToAddress(address), nil)
}

// MilliEthToWei milliETH转wei，先在微ETH精度上取整再乘1e12
func MilliEthToWei(amountMilliEth float64) *big.Int {
	microEth := math.Floor(amountMilliEth * 1e3)
	if microEth < 0 || math.IsNaN(microEth) || math.IsInf(microEth, 0) {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(big.NewInt(int64(microEth)), big.NewInt(1e12))
}
