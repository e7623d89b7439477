// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network-specific parameters a node needs to
// validate and relay on a given Bitcoin-style network: genesis block,
// proof-of-work limit and retarget schedule, checkpoints, activation
// heights, and versionbits deployments, generalized from a DAG's K
// parameter back to a linear chain's retarget window and checkpoint table.
package chaincfg

import (
	"math/big"
	"time"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

var bigOne = big.NewInt(1)

// ConsensusDeployment describes one BIP9 versionbits soft-fork deployment.
type ConsensusDeployment struct {
	// BitNumber is the version bit this deployment signals on.
	BitNumber uint8
	// StartTime is the median time after which signaling is observed.
	StartTime uint64
	// ExpireTime is the median time after which the deployment is
	// considered failed if it never locked in.
	ExpireTime uint64
}

// Deployment bit positions/IDs, matching Bitcoin Core's assignment.
const (
	DeploymentTestDummy = iota
	DeploymentCSV
	DeploymentSegwit
	// DefinedDeployments must stay last; it sizes Params.Deployments.
	DefinedDeployments
)

// Checkpoint is a hard-coded (height, hash) pair a candidate fork must not
// contradict.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// Params defines one Bitcoin-style network: magic, seeds, genesis,
// consensus activation parameters, and policy defaults.
type Params struct {
	Name        string
	Net         wire.BitcoinNet
	DefaultPort string
	DNSSeeds    []string

	GenesisBlock *wire.MsgBlock
	GenesisHash  *chainhash.Hash

	// PowLimit is the highest (easiest) proof-of-work target permitted.
	PowLimit     *big.Int
	PowLimitBits uint32

	// TargetTimePerBlock is the desired block interval.
	TargetTimePerBlock time.Duration
	// RetargetAdjustmentFactor bounds how much the target may change
	// between retargets (4x up or down, Bitcoin's classic rule).
	RetargetAdjustmentFactor int64
	// RetargetWindow is the number of blocks between retargets (2016 on
	// mainnet).
	RetargetWindow int32
	// ReduceMinDifficulty allows the "20-minutes-since-last-block"
	// minimum-difficulty exception used by test networks.
	ReduceMinDifficulty    bool
	MinDiffReductionTime   time.Duration
	NoDifficultyAdjustment bool

	// SubsidyHalvingInterval is the number of blocks between subsidy
	// halvings.
	SubsidyHalvingInterval int32

	// Consensus activation points.
	BIP0034Height int32
	BIP0065Height int32
	BIP0066Height int32
	CoinbaseMaturity uint16

	// Deployments holds the BIP9 versionbits soft forks this network
	// recognizes, indexed by the Deployment* constants above.
	Deployments [DefinedDeployments]ConsensusDeployment

	// Checkpoints is the compiled-in table consulted during reorg
	// candidate validation.
	Checkpoints []Checkpoint

	// Address encoding.
	PubKeyHashAddrID byte
	ScriptHashAddrID byte
	PrivateKeyID     byte
	Bech32HRPSegwit  string

	// Policy defaults.
	MinRelayTxFee int64 // satoshis per 1000 vbytes
	// FreeTxRelayLimit is the free-relay budget in KB/10min a transaction
	// below the free-priority threshold may still consume.
	FreeTxRelayLimit float64
	// FreePriorityThreshold is FREE_THRESHOLD: the minimum
	// coin-age-based priority (value*confirmations/vsize) a transaction
	// must clear to bypass the fee requirement regardless of the
	// free-relay budget.
	FreePriorityThreshold float64
	DynamicFeeHalfLife    time.Duration
	RelayNonStdTxs        bool
}

// CalcBlockSubsidy returns the block subsidy at height, so callers don't
// need to know the halving formula.
func (p *Params) CalcBlockSubsidy(height int32) int64 {
	const baseSubsidy = 50 * 1e8
	if p.SubsidyHalvingInterval == 0 {
		return baseSubsidy
	}
	halvings := height / p.SubsidyHalvingInterval
	if halvings >= 64 {
		return 0
	}
	return baseSubsidy >> uint(halvings)
}

// mainPowLimit is 2^224-1, Bitcoin mainnet's proof-of-work floor.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

// regressionPowLimit is 2^255-1, regtest's near-nonexistent floor.
var regressionPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

// MainNetParams defines the parameters for mainnet.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	DNSSeeds: []string{
		"seed.bitcoin.sipa.be",
		"dnsseed.bluematt.me",
		"dnsseed.bitcoin.dashjr.org",
		"seed.bitcoinstats.com",
		"seed.bitcoin.jonasschnelli.ch",
		"seed.btc.petertodd.org",
	},

	GenesisBlock: &genesisBlock,
	GenesisHash:  &genesisHash,

	PowLimit:                 mainPowLimit,
	PowLimitBits:              0x1d00ffff,
	TargetTimePerBlock:        10 * time.Minute,
	RetargetAdjustmentFactor:  4,
	RetargetWindow:            2016,
	ReduceMinDifficulty:       false,
	NoDifficultyAdjustment:    false,

	SubsidyHalvingInterval: 210000,

	BIP0034Height: 227931,
	BIP0065Height: 388381,
	BIP0066Height: 363725,
	CoinbaseMaturity: 100,

	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 1199145601, ExpireTime: 1230767999},
		DeploymentCSV:       {BitNumber: 0, StartTime: 1462060800, ExpireTime: 1493596800},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 1479168000, ExpireTime: 1510704000},
	},

	Checkpoints: []Checkpoint{
		{Height: 11111, Hash: mustHash("0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d")},
		{Height: 33333, Hash: mustHash("000000002dd5588a74784eaa7ab0507a18ad16a236e7b1ce69f00d7ddfb5d0a6")},
		{Height: 74000, Hash: mustHash("0000000000573993a3c9e41ce34471c079dcf5f52a0e824a81e7f953b8661a20")},
		{Height: 105000, Hash: mustHash("00000000000291ce28027faea320c8d2b054b2e0fe44a773f3eefb151d6bdc97")},
		{Height: 210000, Hash: mustHash("000000000000048b95347e83192f69cf0366076336c639f9b7228e9ba171342e")},
	},

	PubKeyHashAddrID: 0x00,
	ScriptHashAddrID: 0x05,
	PrivateKeyID:     0x80,
	Bech32HRPSegwit:  "bc",

	MinRelayTxFee:      1000,
	FreeTxRelayLimit:      15.0,
	FreePriorityThreshold: 57_600_000.0,
	DynamicFeeHalfLife:    66*time.Minute + 30*time.Second,
	RelayNonStdTxs:     false,
}

// TestNet3Params defines the parameters for the testnet3 test network.
var TestNet3Params = Params{
	Name:        "testnet3",
	Net:         wire.TestNet3,
	DefaultPort: "18333",
	DNSSeeds: []string{
		"testnet-seed.bitcoin.jonasschnelli.ch",
		"seed.tbtc.petertodd.org",
	},

	GenesisBlock: &testNet3GenesisBlock,
	GenesisHash:  &testNet3GenesisHash,

	PowLimit:                mainPowLimit,
	PowLimitBits:             0x1d00ffff,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetAdjustmentFactor: 4,
	RetargetWindow:           2016,
	ReduceMinDifficulty:      true,
	MinDiffReductionTime:     20 * time.Minute,
	NoDifficultyAdjustment:   false,

	SubsidyHalvingInterval: 210000,

	BIP0034Height: 21111,
	BIP0065Height: 581885,
	BIP0066Height: 330776,
	CoinbaseMaturity: 100,

	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 1199145601, ExpireTime: 1230767999},
		DeploymentCSV:       {BitNumber: 0, StartTime: 1456790400, ExpireTime: 1493596800},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 1462060800, ExpireTime: 1493596800},
	},

	PubKeyHashAddrID: 0x6f,
	ScriptHashAddrID: 0xc4,
	PrivateKeyID:     0xef,
	Bech32HRPSegwit:  "tb",

	MinRelayTxFee:      1000,
	FreeTxRelayLimit:      15.0,
	FreePriorityThreshold: 57_600_000.0,
	DynamicFeeHalfLife:    66*time.Minute + 30*time.Second,
	RelayNonStdTxs:     true,
}

// RegressionNetParams defines the parameters for a private regtest
// network, where PowLimit is relaxed enough to mine with a single CPU and
// no checkpoints or BIP9 timestamps constrain local testing.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.RegTest,
	DefaultPort: "18444",

	GenesisBlock: &regTestGenesisBlock,
	GenesisHash:  &regTestGenesisHash,

	PowLimit:                 regressionPowLimit,
	PowLimitBits:              0x207fffff,
	TargetTimePerBlock:        10 * time.Minute,
	RetargetAdjustmentFactor:  4,
	RetargetWindow:            2016,
	ReduceMinDifficulty:       true,
	MinDiffReductionTime:      20 * time.Minute,
	NoDifficultyAdjustment:    true,

	SubsidyHalvingInterval: 150,

	BIP0034Height: 100000000,
	BIP0065Height: 1351,
	BIP0066Height: 1251,
	CoinbaseMaturity: 100,

	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 0, ExpireTime: 999999999999},
		DeploymentCSV:       {BitNumber: 0, StartTime: 0, ExpireTime: 999999999999},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 0, ExpireTime: 999999999999},
	},

	PubKeyHashAddrID: 0x6f,
	ScriptHashAddrID: 0xc4,
	PrivateKeyID:     0xef,
	Bech32HRPSegwit:  "bcrt",

	MinRelayTxFee:      1000,
	FreeTxRelayLimit:      15.0,
	FreePriorityThreshold: 57_600_000.0,
	DynamicFeeHalfLife:    66*time.Minute + 30*time.Second,
	RelayNonStdTxs:     true,
}
