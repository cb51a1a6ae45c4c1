package rlc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailiu-bupt2005/librlc-lte/internal/timerwheel"
)

func testAMConfig() AMConfig {
	return AMConfig{
		TReordering:      20,
		TStatusPdu:       20,
		TStatusProhibit:  5,
		TPollRetransmit:  30,
		MaxRetxThreshold: 4,
		PollPDU:          0,
		PollByte:         0,
	}
}

func TestAM_FreshPDUAssignsSNAndInstallsTxRecord(t *testing.T) {
	wheel := timerwheel.New(64)
	a := NewAMEntity(wheel, testAMConfig())
	require.NoError(t, a.EnqueueSDU([]byte("hello"), nil, nil))

	out := make([]byte, 64)
	n, kind, err := a.BuildPDU(out)
	require.NoError(t, err)
	require.Equal(t, PDUFresh, kind)

	dc, rf, _, fi, e, sn := decodeAMHeader(out[:2])
	require.True(t, dc)
	require.False(t, rf)
	require.False(t, e)
	require.Equal(t, uint32(0), sn)
	require.False(t, fi.nfirst())
	require.False(t, fi.nlast())
	require.Equal(t, "hello", string(out[2:n]))
	require.Equal(t, uint32(1), a.vtS)
	require.True(t, a.txpdu[0].filled)
}

// TestAM_LoopbackLosslessDelivery is S1: a short run of fresh PDUs,
// delivered intact end-to-end with no loss.
func TestAM_LoopbackLosslessDelivery(t *testing.T) {
	wheel := timerwheel.New(64)
	tx := NewAMEntity(wheel, testAMConfig())
	rx := NewAMEntity(wheel, testAMConfig())

	var delivered []string
	rx.SetDeliverCallback(func(data []byte) { delivered = append(delivered, string(data)) })

	msgs := []string{"alpha", "bravo", "charlie"}
	for _, m := range msgs {
		// One SDU is queued per build: with all three queued at once, a
		// 16-byte grant would concatenate alpha, bravo and the first byte
		// of charlie into a single PDU.
		require.NoError(t, tx.EnqueueSDU([]byte(m), nil, nil))
		out := make([]byte, 16)
		n, kind, err := tx.BuildPDU(out)
		require.NoError(t, err)
		require.Equal(t, PDUFresh, kind)
		require.NoError(t, rx.ProcessPDU(out[:n], nil, nil))
	}

	require.Equal(t, msgs, delivered)
	require.Equal(t, uint32(3), rx.vrR)
}

// TestAM_SegmentLossTriggersNACK is S2: TX sends SN 0..4, RX receives
// 0,1,3,4 (SN 2 lost). RX's STATUS PDU NACKs SN 2; once TX processes it,
// SN 2 is queued for whole-PDU retransmission and the other SNs are freed.
func TestAM_SegmentLossTriggersNACK(t *testing.T) {
	wheel := timerwheel.New(64)
	tx := NewAMEntity(wheel, testAMConfig())
	rx := NewAMEntity(wheel, testAMConfig())

	pdus := make([][]byte, 5)
	for i := 0; i < 5; i++ {
		require.NoError(t, tx.EnqueueSDU([]byte{byte('a' + i)}, nil, nil))
		out := make([]byte, 16)
		n, _, err := tx.BuildPDU(out)
		require.NoError(t, err)
		pdus[i] = append([]byte(nil), out[:n]...)
	}
	require.Equal(t, uint32(5), tx.vtS)

	for _, i := range []int{0, 1, 3, 4} {
		require.NoError(t, rx.ProcessPDU(pdus[i], nil, nil))
	}
	require.Equal(t, uint32(2), rx.vrR)
	require.Equal(t, uint32(5), rx.vrH)

	status := make([]byte, 32)
	rx.statusPduTriggered = true
	n, kind, err := rx.BuildPDU(status)
	require.NoError(t, err)
	require.Equal(t, PDUStatus, kind)

	ackSN, nacks, err := parseStatusPDU(status[:n])
	require.NoError(t, err)
	require.Equal(t, uint32(5), ackSN)
	require.Len(t, nacks, 1)
	require.Equal(t, uint32(2), nacks[0].sn)
	require.False(t, nacks[0].hasRange)

	require.NoError(t, tx.ProcessPDU(status[:n], nil, nil))
	require.Equal(t, uint32(2), tx.vtA)
	require.Len(t, tx.retxQueue, 1)
	require.Equal(t, uint32(2), tx.retxQueue[0])
	require.Nil(t, tx.txpdu[0].data)
	require.Nil(t, tx.txpdu[4].data)

	retx := make([]byte, 16)
	n2, kind2, err := tx.BuildPDU(retx)
	require.NoError(t, err)
	require.Equal(t, PDURetx, kind2)
	require.Equal(t, 1, int(tx.txpdu[2].retxCount))

	require.NoError(t, rx.ProcessPDU(retx[:n2], nil, nil))
	require.Equal(t, uint32(5), rx.vrR)
}

// TestAM_ByteRangeNACK is S3: a NACK with an explicit [SOstart,SOend)
// range produces a resegment descriptor covering exactly that range.
func TestAM_ByteRangeNACK(t *testing.T) {
	wheel := timerwheel.New(64)
	tx := NewAMEntity(wheel, testAMConfig())

	require.NoError(t, tx.EnqueueSDU([]byte("0123456789"), nil, nil))
	out := make([]byte, 32)
	n, _, err := tx.BuildPDU(out)
	require.NoError(t, err)
	require.Equal(t, uint32(1), tx.vtS)
	dataLen := tx.txpdu[0].dataLen()
	require.Equal(t, uint32(10), dataLen)
	_ = n

	err = tx.onReceiveStatus(1, []nackEntry{{sn: 0, hasRange: true, soStart: 3, soEnd: 7}})
	require.NoError(t, err)
	require.Len(t, tx.txpdu[0].resegs, 1)
	require.Equal(t, uint32(3), tx.txpdu[0].resegs[0].start)
	require.Equal(t, uint32(7), tx.txpdu[0].resegs[0].end)
	require.False(t, tx.txpdu[0].resegs[0].lsf)

	retx := make([]byte, 32)
	n2, err := tx.buildRetxPDU(retx)
	require.NoError(t, err)
	_, rf, _, _, _, sn := decodeAMHeader(retx[:2])
	require.True(t, rf)
	require.Equal(t, uint32(0), sn)
	lsf, so := decodeAMSegmentTail(retx[:4])
	require.False(t, lsf)
	require.Equal(t, uint32(3), so)
	require.Equal(t, "3456", string(retx[4:n2]))
}

func TestAM_Reestablish(t *testing.T) {
	wheel := timerwheel.New(64)
	a := NewAMEntity(wheel, testAMConfig())
	require.NoError(t, a.EnqueueSDU([]byte("pending"), nil, nil))
	out := make([]byte, 32)
	_, _, err := a.BuildPDU(out)
	require.NoError(t, err)

	a.Reestablish()

	require.Equal(t, uint32(0), a.vtA)
	require.Equal(t, uint32(0), a.vtS)
	require.Equal(t, uint32(amWindowSize), a.vtMS)
	require.Equal(t, uint32(amWindowSize), a.vrMR)
	require.True(t, a.txQueue.empty())
	require.Empty(t, a.retxQueue)
	require.False(t, a.tReorderingRun)
	require.False(t, a.tPollRetransmitRun)
}

// TestAM_SegmentPoolExhaustionReturnsError drives a segment-record pool with
// a deliberately tiny capacity to its limit: once every slot is held by an
// unreassembled receive record, the next placed PDU must fail with
// ErrPoolExhausted rather than silently growing past the configured bound.
func TestAM_SegmentPoolExhaustionReturnsError(t *testing.T) {
	wheel := timerwheel.New(64)
	cfg := testAMConfig()
	cfg.MaxSegmentRecords = 2
	rx := NewAMEntity(wheel, cfg)

	// Partial, non-lsf first segments of sn=1 and sn=2 stay pending (neither
	// is VR(R), so neither is ever auto-reassembled and freed) and each pins
	// one of the pool's two slots.
	partial := func(sn uint32) []byte {
		hdr := encodeAMSegmentHeader(false, makeFI(false, false), false, sn, false, 0)
		return append(append([]byte(nil), hdr[:]...), make([]byte, 10)...)
	}

	require.NoError(t, rx.ProcessPDU(partial(1), nil, nil))
	require.NoError(t, rx.ProcessPDU(partial(2), nil, nil))
	require.Equal(t, 2, rx.segPool.Len())

	err := rx.ProcessPDU(partial(3), nil, nil)
	require.ErrorIs(t, err, ErrPoolExhausted)

	// Freeing the slot held by sn=1's record makes room for sn=3 again.
	rx.freeRxSlot(1)
	require.NoError(t, rx.ProcessPDU(partial(3), nil, nil))
}
