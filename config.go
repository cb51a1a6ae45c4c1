package rlc

import "gopkg.in/ini.v1"

// AMConfig holds the AM entity's configuration (§6): the four timer
// durations (expressed in the timer wheel's tick units), the max
// retransmission threshold, and the poll-triggering counters.
type AMConfig struct {
	TReordering      uint32
	TStatusPdu       uint32
	TStatusProhibit  uint32
	TPollRetransmit  uint32
	MaxRetxThreshold uint32
	PollPDU          uint32
	PollByte         uint32

	// MaxSegmentRecords bounds the fixed-capacity pool backing received
	// AM segment records (§7 resource exhaustion). Zero means "use the
	// library default".
	MaxSegmentRecords uint32
}

// UMConfig holds the UM entity's configuration (§6).
type UMConfig struct {
	SNBits       int // 5 or 10
	WindowSize   uint32
	TReordering  uint32
}

// DefaultAMConfig returns conservative values in the same spirit as
// 36.322's recommended defaults; callers building a real bearer should
// supply their own.
func DefaultAMConfig() AMConfig {
	return AMConfig{
		TReordering:       35,
		TStatusPdu:        35,
		TStatusProhibit:   0,
		TPollRetransmit:   45,
		MaxRetxThreshold:  4,
		PollPDU:           16,
		PollByte:          0,
		MaxSegmentRecords: defaultSegmentPoolCapacity,
	}
}

// DefaultUMConfig returns a 10-bit-SN configuration with a full-size
// reordering window.
func DefaultUMConfig() UMConfig {
	return UMConfig{
		SNBits:      10,
		WindowSize:  512,
		TReordering: 35,
	}
}

// LoadEntityConfig reads an INI-format bearer configuration file with up to three
// sections — [am], [um], [tm] — and returns whichever of AMConfig/UMConfig
// were present. A bearer normally only has one of the two; both returned
// pointers are nil if their section is absent. file may be a path,
// *os.File, or []byte, per ini.Load's own contract.
func LoadEntityConfig(file any) (*AMConfig, *UMConfig, error) {
	cfg, err := ini.Load(file)
	if err != nil {
		return nil, nil, err
	}

	var amCfg *AMConfig
	if cfg.HasSection("am") {
		sec := cfg.Section("am")
		c := DefaultAMConfig()
		c.TReordering = uint32(sec.Key("t_reordering").MustUint(uint(c.TReordering)))
		c.TStatusPdu = uint32(sec.Key("t_status_pdu").MustUint(uint(c.TStatusPdu)))
		c.TStatusProhibit = uint32(sec.Key("t_status_prohibit").MustUint(uint(c.TStatusProhibit)))
		c.TPollRetransmit = uint32(sec.Key("t_poll_retransmit").MustUint(uint(c.TPollRetransmit)))
		c.MaxRetxThreshold = uint32(sec.Key("max_retx_threshold").MustUint(uint(c.MaxRetxThreshold)))
		c.PollPDU = uint32(sec.Key("poll_pdu").MustUint(uint(c.PollPDU)))
		c.PollByte = uint32(sec.Key("poll_byte").MustUint(uint(c.PollByte)))
		c.MaxSegmentRecords = uint32(sec.Key("max_segment_records").MustUint(uint(c.MaxSegmentRecords)))
		amCfg = &c
	}

	var umCfg *UMConfig
	if cfg.HasSection("um") {
		sec := cfg.Section("um")
		c := DefaultUMConfig()
		c.SNBits = sec.Key("sn_bits").MustInt(c.SNBits)
		c.WindowSize = uint32(sec.Key("window_size").MustUint(uint(c.WindowSize)))
		c.TReordering = uint32(sec.Key("t_reordering").MustUint(uint(c.TReordering)))
		umCfg = &c
	}

	return amCfg, umCfg, nil
}
