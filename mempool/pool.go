// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements the unconfirmed transaction pool: admission
// (sanity, standardness, finality, fee and ancestor-count gating, script
// verification), orphan parking and promotion, and the spent-outpoint/
// fee-rate/address indexes a relay and mining node need.
package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/dworznik/bcoin/blockchain"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/chainutil"
	"github.com/dworznik/bcoin/txscript"
	"github.com/dworznik/bcoin/wire"
)

// Mempool is the single pool of not-yet-confirmed transactions a node
// relays and offers to its block template builder. It is safe for
// concurrent use; every exported method takes the pool's lock for the
// duration of its work, and any caller that also touches
// the chain engine must take the chain's lock first to respect the fixed
// chain-then-mempool lock order.
type Mempool struct {
	chain  *blockchain.Chain
	config *Config

	mu sync.RWMutex

	entries     map[chainhash.Hash]*txEntry
	spentBy     map[wire.OutPoint]chainhash.Hash
	arrival     []chainhash.Hash // insertion order, oldest first
	byFeeRate   byFeeRate
	addrTxs     map[string]map[chainhash.Hash]struct{}
	orphans        *orphanPool
	dynamicFee     *dynamicFeeTracker
	sizeInBytes    int64
	lastExpireScan time.Time
}

// New creates a Mempool that resolves unconfirmed coins and checks
// finality against chain's current tip.
func New(chain *blockchain.Chain, config *Config) *Mempool {
	if config == nil {
		config = DefaultConfig(chain.Params())
	}
	mp := &Mempool{
		chain:   chain,
		config:  config,
		entries: make(map[chainhash.Hash]*txEntry),
		spentBy: make(map[wire.OutPoint]chainhash.Hash),
		addrTxs: make(map[string]map[chainhash.Hash]struct{}),
	}
	mp.orphans = newOrphanPool(mp)
	mp.dynamicFee = newDynamicFeeTracker(config.Params.DynamicFeeHalfLife, int64(config.Params.FreeTxRelayLimit*1000))
	return mp
}

// HaveTransaction reports whether txid is already known, either admitted
// or parked as an orphan.
func (mp *Mempool) HaveTransaction(txid chainhash.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	_, ok := mp.entries[txid]
	return ok || mp.orphans.has(txid)
}

// FetchTransaction returns a previously admitted transaction by id.
func (mp *Mempool) FetchTransaction(txid chainhash.Hash) (*wire.MsgTx, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	e, ok := mp.entries[txid]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// Count returns the number of admitted (non-orphan) transactions.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.entries)
}

// TxHashes returns the id of every admitted transaction, in no particular
// order. A peer answers a "mempool" request by inv-announcing exactly this
// set.
func (mp *Mempool) TxHashes() []chainhash.Hash {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	hashes := make([]chainhash.Hash, 0, len(mp.entries))
	for txid := range mp.entries {
		hashes = append(hashes, txid)
	}
	return hashes
}

// SortedByFee returns every admitted transaction ordered highest-fee-rate
// first, the order a block template builder drains the pool in.
func (mp *Mempool) SortedByFee() []*wire.MsgTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	txs := make([]*wire.MsgTx, len(mp.byFeeRate.entries))
	for i, e := range mp.byFeeRate.entries {
		txs[len(txs)-1-i] = e.tx
	}
	return txs
}

// resolveCoin resolves outpoint against the mempool's own unconfirmed
// outputs first, falling back to the chain store.
// Called with mp.mu already held for reads, or not held at all from
// orphan-pool resolvability probes that only touch chainstore/entries
// maps defensively (both are read-only lookups here).
func (mp *Mempool) resolveCoin(outpoint wire.OutPoint) *chainstore.Coin {
	if parent, ok := mp.entries[outpoint.Hash]; ok {
		if int(outpoint.Index) >= len(parent.tx.TxOut) {
			return nil
		}
		out := parent.tx.TxOut[outpoint.Index]
		// Height is the next block's height, not 0: an unconfirmed parent
		// contributes zero confirmations to getPriority's coin-age sum,
		// matching how a truly-zero height would overstate its age.
		return &chainstore.Coin{Value: out.Value, PkScript: out.PkScript, Height: mp.chain.Tip().Height + 1, IsCoinBase: false}
	}
	coin, err := mp.chain.Store().Coin(&outpoint.Hash, outpoint.Index)
	if err != nil {
		return nil
	}
	return coin
}

// AddTransaction runs the full admission pipeline on tx and returns
// every transaction that ended up admitted as a
// result — tx itself plus any orphan this acceptance promoted.
func (mp *Mempool) AddTransaction(tx *wire.MsgTx, isHighPriority, allowOrphan bool) ([]*wire.MsgTx, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.addTransactionLocked(tx, isHighPriority, allowOrphan, true)
}

// addTransactionLocked runs the admission pipeline. When enforcePolicyGate
// is false, the fee/priority floor (step 7), ancestor-count bound (step 8),
// and full script re-verification (step 9) are skipped — the reduced path
// ProcessBlockDisconnected uses to reinsert transactions that were, by
// definition, already valid enough to have been mined.
func (mp *Mempool) addTransactionLocked(tx *wire.MsgTx, isHighPriority, allowOrphan, enforcePolicyGate bool) ([]*wire.MsgTx, error) {
	txid := tx.TxHash()

	// Step 1: sanity.
	if err := isSane(tx); err != nil {
		return nil, err
	}

	// Step 2: standardness policy (skippable per config).
	if !mp.config.AcceptNonStandard {
		if err := isStandard(tx, mp.config.Params.MinRelayTxFee); err != nil {
			return nil, err
		}
	}
	tip := mp.chain.Tip()
	flags, err := mp.chain.ScriptVerifyFlagsForNextBlock()
	if err != nil {
		return nil, newRuleError(err)
	}
	if !flags.HasFlag(txscript.ScriptVerifyWitness) && tx.HasWitness() {
		return nil, txRuleError(RejectNonstandard, "transaction carries witness data before segwit activation")
	}

	// Step 3: finality against the current tip.
	final, err := mp.chain.CheckFinal(tip, tx, blockchain.StandardLockTimeFlags)
	if err != nil {
		return nil, newRuleError(err)
	}
	if !final {
		return nil, txRuleError(RejectNonstandard, fmt.Sprintf("transaction %s is not finalized", txid))
	}

	// Step 4: duplicate check.
	if _, ok := mp.entries[txid]; ok {
		return nil, txRuleError(RejectDuplicate, fmt.Sprintf("already have transaction %s", txid))
	}
	if mp.orphans.has(txid) {
		return nil, txRuleError(RejectDuplicate, fmt.Sprintf("already have orphan transaction %s", txid))
	}
	if mp.isConfirmedSpent(tx) {
		return nil, txRuleError(RejectDuplicate, fmt.Sprintf("transaction %s outputs are already spent and confirmed", txid))
	}

	// Step 5: double-spend check. No replace-by-fee: any input already
	// claimed by another mempool entry kills admission outright.
	for _, in := range tx.TxIn {
		if spender, ok := mp.spentBy[in.PreviousOutPoint]; ok {
			return nil, txRuleError(RejectDuplicate, fmt.Sprintf(
				"output %s already spent by transaction %s in the memory pool", in.PreviousOutPoint, spender))
		}
	}

	// Step 6: coin resolution, orphaning unresolvable transactions.
	coins := make([]*chainstore.Coin, len(tx.TxIn))
	var missing bool
	for i, in := range tx.TxIn {
		coin := mp.resolveCoin(in.PreviousOutPoint)
		if coin == nil {
			missing = true
			continue
		}
		coins[i] = coin
	}
	if missing {
		if !allowOrphan {
			return nil, txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction %s is an orphan where orphans are not allowed", txid))
		}
		if err := mp.orphans.maybeAdd(tx, isHighPriority); err != nil {
			return nil, err
		}
		return nil, nil
	}

	parentHeights := make([]int32, len(coins))
	var inputSum int64
	prevScripts := make([][]byte, len(coins))
	for i, coin := range coins {
		if coin.IsCoinBase && tip.Height+1-coin.Height < int32(mp.config.Params.CoinbaseMaturity) {
			return nil, txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction %s spends an immature coinbase output", txid))
		}
		parentHeights[i] = coin.Height
		inputSum += coin.Value
		prevScripts[i] = coin.PkScript
	}
	var outputSum int64
	for _, out := range tx.TxOut {
		outputSum += out.Value
	}
	if inputSum < outputSum {
		return nil, txRuleError(RejectInvalid, fmt.Sprintf(
			"transaction %s spends %d but only has %d available", txid, outputSum, inputSum))
	}
	fee := inputSum - outputSum

	locksOK, err := mp.chain.CheckLocks(tip, tx, parentHeights, blockchain.StandardLockTimeFlags)
	if err != nil {
		return nil, newRuleError(err)
	}
	if !locksOK {
		return nil, txRuleError(RejectNonstandard, fmt.Sprintf(
			"transaction %s has a relative locktime that has not matured", txid))
	}

	if !mp.config.AcceptNonStandard {
		if err := checkInputsStandard(tx, prevScripts); err != nil {
			return nil, err
		}
	}

	// Step 7: fee/priority gate. Skipped when reinserting a transaction
	// that was already mined: a dynamic-fee floor raised by unrelated
	// evictions since it was mined must not cause it to be dropped.
	vsize := virtualSize(tx)
	if enforcePolicyGate {
		minFee := minimumRelayFee(vsize, mp.config.Params.MinRelayTxFee)
		mp.dynamicFee.decay(time.Now())
		requiredRate := mp.config.Params.MinRelayTxFee
		if dyn := int64(mp.dynamicFee.minRate * 1000); dyn > requiredRate {
			requiredRate = dyn
		}
		required := minimumRelayFee(vsize, requiredRate)
		if fee < required {
			priority := getPriority(valuesOf(coins), parentHeights, tip.Height+1, vsize)
			isFreePriority := priority > mp.config.Params.FreePriorityThreshold
			if !isFreePriority && !mp.dynamicFee.allowFree(int(vsize)) {
				return nil, txRuleError(RejectInsufficientFee, fmt.Sprintf(
					"transaction %s has fee %d which is under the required amount of %d", txid, fee, required))
			}
		}
		if mp.config.RejectAbsurdFees && fee > absurdFeeMultiplier*minFee {
			return nil, txRuleError(RejectInsufficientFee, fmt.Sprintf(
				"transaction %s pays %d fee which is considerably larger than the usual fee for a transaction of its size", txid, fee))
		}
	}

	// Step 8: ancestor-count bound. Skipped for reinsertion: the bound
	// polices new mempool chains, not transactions restored together as
	// a previously-mined block.
	parentTxids := mp.inMempoolParents(tx)
	if enforcePolicyGate {
		if count := mp.ancestorCount(parentTxids); count > mp.config.AncestorLimit {
			return nil, txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction %s would have %d in-mempool ancestors, more than the limit of %d",
				txid, count, mp.config.AncestorLimit))
		}
	}

	// Step 9: script verification, standard flags first, mandatory-only
	// retried so the caller can tell a non-mandatory reject from one a
	// mandatory-consensus-enforcing peer would also hand out. Skipped for
	// reinsertion: the transaction already had its scripts verified when
	// it was mined.
	if enforcePolicyGate {
		if err := mp.verifyScripts(tx, prevScripts, coins, txscript.StandardVerifyFlags); err != nil {
			if verr := mp.verifyScripts(tx, prevScripts, coins, txscript.MandatoryVerifyFlags); verr != nil {
				return nil, txRuleError(RejectInvalid, fmt.Sprintf("script validation failed: %v", verr))
			}
			return nil, txRuleError(RejectNonstandard, fmt.Sprintf("script validation failed under standard flags: %v", err))
		}
	}

	entry := &txEntry{
		tx: tx, txid: txid, addedAt: time.Now(), height: tip.Height,
		fee: fee, vsize: vsize, isHighPriority: isHighPriority, parentTxids: parentTxids,
	}

	// Step 10: insert and promote resolvable orphans transitively.
	mp.insert(entry)
	accepted := []*wire.MsgTx{tx}
	queue := []chainhash.Hash{txid}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		promoted := mp.orphans.resolvableChildrenOf(current, len(mp.entries[current].tx.TxOut))
		for _, o := range promoted {
			mp.orphans.remove(o.txid, false)
			promotedEntry, err := mp.admitResolved(o.tx, o.isHighPriority)
			if err != nil {
				if _, ok := err.(RuleError); ok {
					continue
				}
				return accepted, err
			}
			accepted = append(accepted, o.tx)
			queue = append(queue, promotedEntry.txid)
		}
	}

	// Step 11: evict if the memory cap is now exceeded.
	mp.evictIfOverCapacity()

	return accepted, nil
}

// admitResolved admits an orphan whose parents just became visible. It
// re-resolves every input, checks that the inputs cover the outputs, and
// verifies scripts under the standard flags. The coinbase-maturity,
// relative-lock, input-standardness, fee/priority and ancestor-count
// checks of addTransactionLocked are not applied to a promoted orphan.
func (mp *Mempool) admitResolved(tx *wire.MsgTx, isHighPriority bool) (*txEntry, error) {
	txid := tx.TxHash()
	coins := make([]*chainstore.Coin, len(tx.TxIn))
	for i, in := range tx.TxIn {
		coins[i] = mp.resolveCoin(in.PreviousOutPoint)
		if coins[i] == nil {
			return nil, txRuleError(RejectNonstandard, fmt.Sprintf("transaction %s is still missing an input", txid))
		}
	}
	prevScripts := make([][]byte, len(coins))
	var inputSum int64
	for i, c := range coins {
		prevScripts[i] = c.PkScript
		inputSum += c.Value
	}
	var outputSum int64
	for _, out := range tx.TxOut {
		outputSum += out.Value
	}
	if inputSum < outputSum {
		return nil, txRuleError(RejectInvalid, fmt.Sprintf("transaction %s spends more than it has available", txid))
	}
	if err := mp.verifyScripts(tx, prevScripts, coins, txscript.StandardVerifyFlags); err != nil {
		return nil, txRuleError(RejectInvalid, fmt.Sprintf("script validation failed: %v", err))
	}
	entry := &txEntry{
		tx: tx, txid: txid, addedAt: time.Now(), height: mp.chain.Tip().Height,
		fee: inputSum - outputSum, vsize: virtualSize(tx), isHighPriority: isHighPriority,
		parentTxids: mp.inMempoolParents(tx),
	}
	mp.insert(entry)
	return entry, nil
}

func (mp *Mempool) verifyScripts(tx *wire.MsgTx, prevScripts [][]byte, coins []*chainstore.Coin, flags txscript.ScriptFlags) error {
	sigHashes := txscript.NewTxSigHashes(tx)
	for i := range tx.TxIn {
		vm, err := txscript.NewEngine(prevScripts[i], tx, i, flags, coins[i].Value, sigHashes)
		if err != nil {
			return err
		}
		if err := vm.Execute(); err != nil {
			return err
		}
	}
	return nil
}

func valuesOf(coins []*chainstore.Coin) []int64 {
	values := make([]int64, len(coins))
	for i, c := range coins {
		values[i] = c.Value
	}
	return values
}

// isConfirmedSpent reports whether any output tx would create is
// already present and unspent in the chain store under the same txid
// (step 4's "confirmed-unspent" duplicate case — an already-mined
// transaction with the same id offered again).
func (mp *Mempool) isConfirmedSpent(tx *wire.MsgTx) bool {
	txid := tx.TxHash()
	for i := range tx.TxOut {
		if _, err := mp.chain.Store().Coin(&txid, uint32(i)); err == nil {
			return true
		}
	}
	return false
}

// inMempoolParents returns the set of this tx's inputs' txids that are
// currently themselves mempool entries.
func (mp *Mempool) inMempoolParents(tx *wire.MsgTx) map[chainhash.Hash]struct{} {
	parents := make(map[chainhash.Hash]struct{})
	for _, in := range tx.TxIn {
		if _, ok := mp.entries[in.PreviousOutPoint.Hash]; ok {
			parents[in.PreviousOutPoint.Hash] = struct{}{}
		}
	}
	return parents
}

// ancestorCount walks the in-mempool ancestor graph breadth-first,
// returning the number of distinct ancestors found.
func (mp *Mempool) ancestorCount(parents map[chainhash.Hash]struct{}) int {
	seen := make(map[chainhash.Hash]struct{})
	queue := make([]chainhash.Hash, 0, len(parents))
	for p := range parents {
		queue = append(queue, p)
	}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		if e, ok := mp.entries[h]; ok {
			for p := range e.parentTxids {
				queue = append(queue, p)
			}
		}
	}
	return len(seen)
}

func (mp *Mempool) insert(entry *txEntry) {
	mp.entries[entry.txid] = entry
	for _, in := range entry.tx.TxIn {
		mp.spentBy[in.PreviousOutPoint] = entry.txid
	}
	mp.byFeeRate.push(entry)
	mp.arrival = append(mp.arrival, entry.txid)
	mp.sizeInBytes += entry.vsize
	mp.indexAddresses(entry)
}

func (mp *Mempool) indexAddresses(entry *txEntry) {
	for _, out := range entry.tx.TxOut {
		_, addr, err := txscript.ExtractPkScriptAddr(out.PkScript,
			mp.config.Params.PubKeyHashAddrID, mp.config.Params.ScriptHashAddrID, mp.config.Params.Bech32HRPSegwit)
		if err != nil || addr == nil {
			continue
		}
		key := string(addr.ScriptAddress())
		if mp.addrTxs[key] == nil {
			mp.addrTxs[key] = make(map[chainhash.Hash]struct{})
		}
		mp.addrTxs[key][entry.txid] = struct{}{}
	}
}

func (mp *Mempool) unindexAddresses(entry *txEntry) {
	for _, out := range entry.tx.TxOut {
		_, addr, err := txscript.ExtractPkScriptAddr(out.PkScript,
			mp.config.Params.PubKeyHashAddrID, mp.config.Params.ScriptHashAddrID, mp.config.Params.Bech32HRPSegwit)
		if err != nil || addr == nil {
			continue
		}
		key := string(addr.ScriptAddress())
		delete(mp.addrTxs[key], entry.txid)
		if len(mp.addrTxs[key]) == 0 {
			delete(mp.addrTxs, key)
		}
	}
}

// TransactionsForAddress returns the txids of every mempool entry that
// pays the given address, via the optional address->tx index.
func (mp *Mempool) TransactionsForAddress(addr chainutil.Address) []chainhash.Hash {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	set := mp.addrTxs[string(addr.ScriptAddress())]
	out := make([]chainhash.Hash, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

func (mp *Mempool) removeEntryLocked(txid chainhash.Hash) *txEntry {
	entry, ok := mp.entries[txid]
	if !ok {
		return nil
	}
	delete(mp.entries, txid)
	for _, in := range entry.tx.TxIn {
		if mp.spentBy[in.PreviousOutPoint] == txid {
			delete(mp.spentBy, in.PreviousOutPoint)
		}
	}
	mp.byFeeRate.remove(entry)
	mp.sizeInBytes -= entry.vsize
	mp.unindexAddresses(entry)
	return entry
}

// RemoveTransaction removes txid and, if removeRedeemers is set, every
// mempool transaction that (transitively) spends one of its outputs.
func (mp *Mempool) RemoveTransaction(txid chainhash.Hash, removeRedeemers bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.removeTransactionLocked(txid, removeRedeemers)
}

func (mp *Mempool) removeTransactionLocked(txid chainhash.Hash, removeRedeemers bool) {
	if mp.orphans.has(txid) {
		mp.orphans.remove(txid, true)
		return
	}
	entry := mp.entries[txid]
	if entry == nil {
		return
	}
	if removeRedeemers {
		for _, redeemer := range mp.redeemersOf(txid) {
			mp.removeTransactionLocked(redeemer, true)
		}
	}
	mp.removeEntryLocked(txid)
}

// redeemersOf returns the txids of entries that spend an output of txid.
func (mp *Mempool) redeemersOf(txid chainhash.Hash) []chainhash.Hash {
	var redeemers []chainhash.Hash
	for outpoint, spender := range mp.spentBy {
		if outpoint.Hash == txid {
			redeemers = append(redeemers, spender)
		}
	}
	return redeemers
}

// ProcessBlockConnected removes every transaction the newly connected
// block included (and any mempool descendant that double-spent against
// it), walking the block's own transactions in reverse so a child is
// always removed before the parent it depended on.
func (mp *Mempool) ProcessBlockConnected(block *wire.MsgBlock) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]
		txid := tx.TxHash()
		mp.removeTransactionLocked(txid, false)
		for _, in := range tx.TxIn {
			if spender, ok := mp.spentBy[in.PreviousOutPoint]; ok {
				mp.removeTransactionLocked(spender, true)
			}
		}
	}
	mp.orphans.expireStale(time.Now())
	mp.expireOldTransactionsLocked(time.Now())
}

// expireOldTransactionsLocked evicts non-high-priority entries that have
// sat unmined longer than the configured expire interval, paced by the
// configured scan interval, walking arrival order so it stops at the
// first entry too young to expire rather than scanning the whole pool
// (a rolling expiry, distinct from the fee-driven eviction
// evictIfOverCapacity performs).
func (mp *Mempool) expireOldTransactionsLocked(now time.Time) {
	if now.Sub(mp.lastExpireScan) < mp.config.TransactionExpireScanInterval {
		return
	}
	mp.lastExpireScan = now

	i := 0
	for ; i < len(mp.arrival); i++ {
		entry, ok := mp.entries[mp.arrival[i]]
		if !ok {
			continue // already removed by a fee eviction or explicit removal
		}
		if entry.isHighPriority {
			continue
		}
		if now.Sub(entry.addedAt) <= mp.config.TransactionExpireInterval {
			break
		}
		mp.removeTransactionLocked(entry.txid, true)
	}
	mp.arrival = mp.arrival[i:]
}

// ProcessBlockDisconnected reinserts a disconnected block's
// non-coinbase transactions, enforcing only finality/standardness (not
// the full fee/priority/ancestor gate) since these were, by definition,
// already valid enough to have been mined.
func (mp *Mempool) ProcessBlockDisconnected(block *wire.MsgBlock) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	for i := 1; i < len(block.Transactions); i++ {
		tx := block.Transactions[i]
		if _, ok := mp.entries[tx.TxHash()]; ok {
			continue
		}
		_, _ = mp.addTransactionLocked(tx, true, true, false)
	}
}

// evictIfOverCapacity drops the lowest-fee-rate entries until the pool
// fits its configured byte budget, bumping the dynamic minimum fee rate
// by each eviction's own rate plus minReasonableFee so a similarly cheap
// transaction is rejected outright rather than immediately re-admitted
// and re-evicted.
func (mp *Mempool) evictIfOverCapacity() {
	for mp.sizeInBytes > mp.config.MaxMempoolSize {
		victim := mp.byFeeRate.cheapest()
		if victim == nil {
			return
		}
		mp.dynamicFee.bump(victim.feeRate())
		mp.removeTransactionLocked(victim.txid, true)
	}
}
