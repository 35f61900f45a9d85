package serial

// SyncState is the synchronization state of the channel.
type SyncState int

const (
	// StateSyncing means the channel is not synchronized.
	StateSyncing SyncState = 0
	// StateReady means the channel is synchronized and carries frames.
	StateReady SyncState = 0x01
	// StateReceiving means a sync handshake or a frame is in progress.
	StateReceiving SyncState = 0x02
)

// IsReady reports whether frames can be exchanged.
func (s SyncState) IsReady() bool {
	return s&StateReady != 0
}

// IsReceiving reports whether a handshake or frame is in progress.
func (s SyncState) IsReceiving() bool {
	return s&StateReceiving != 0
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

// ParseResult is the outcome of feeding the Parser.
type ParseResult struct {
	// Reply is the sync command to send back, 0 for none.
	Reply byte
	State SyncState
	Frame *Frame
}

// armsTimer reports whether the sync timer must be restarted.
func (r ParseResult) armsTimer() bool {
	return r.State.IsReceiving() || r.Reply == syncREQ
}

type parseStep int

const (
	stepSync       parseStep = iota // REQ sent, waiting for REQ or ACK
	stepSyncReqSeq                  // got REQ, waiting for peer seq
	stepSyncAckSeq                  // got ACK, waiting for peer seq
	stepSeq                         // idle, waiting for frame seq
	stepAckSeq                      // got ACK while idle, validating seq
	stepCode
	stepLen
	stepData
)

// Parser reassembles frames from received bytes and tracks the peer
// sequence. It is not safe for concurrent use.
type Parser struct {
	peer  Seq
	step  parseStep
	frame *Frame
	got   int
}

// State gets the current sync state.
func (p *Parser) State() SyncState {
	switch {
	case p.step == stepSync:
		return StateSyncing
	case p.step == stepSeq:
		return StateReady
	case p.step > stepSeq:
		return StateReady | StateReceiving
	}
	return StateSyncing | StateReceiving
}

// Reset drops any progress and asks for a resync.
func (p *Parser) Reset() ParseResult {
	p.frame = nil
	return p.result(p.resync())
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) ParseResult {
	return p.result(p.feed(b))
}

// Timeout tells the parser the sync timer expired. Unless idle and ready,
// the channel resyncs.
func (p *Parser) Timeout() ParseResult {
	if p.step == stepSeq {
		return p.result(0, nil)
	}
	return p.result(p.resync())
}

func (p *Parser) result(reply byte, f *Frame) ParseResult {
	return ParseResult{Reply: reply, State: p.State(), Frame: f}
}

func (p *Parser) feed(b byte) (byte, *Frame) {
	switch p.step {
	case stepSync:
		if b == syncREQ {
			p.step = stepSyncReqSeq
		} else if b == syncACK {
			p.step = stepSyncAckSeq
		}
	case stepSyncReqSeq, stepSyncAckSeq:
		seq := Seq(b)
		if !seq.IsValid() {
			return p.resync()
		}
		reply := p.step == stepSyncReqSeq
		p.peer, p.step = seq, stepSeq
		if reply {
			return syncACK, nil
		}
	case stepSeq:
		switch {
		case b == syncREQ:
			p.step = stepSyncReqSeq
		case b == syncACK:
			p.step = stepAckSeq
		case Seq(b) != p.peer:
			return p.resync()
		default:
			p.frame = &Frame{Seq: p.peer}
			p.peer = p.peer.Next()
			p.step = stepCode
		}
	case stepAckSeq:
		if Seq(b) != p.peer {
			return p.resync()
		}
		p.step = stepSeq
	case stepCode:
		p.frame.Code = b & codeMask
		switch size := (b & lenMask) >> 4; size {
		case 0:
			return p.done()
		case lenExtended:
			p.step = stepLen
		default:
			p.expect(int(size))
		}
	case stepLen:
		if b > MaxDataLen {
			return p.resync()
		}
		if b == 0 {
			return p.done()
		}
		p.expect(int(b))
	case stepData:
		p.frame.Data[p.got] = b
		if p.got++; p.got == len(p.frame.Data) {
			return p.done()
		}
	}
	return 0, nil
}

func (p *Parser) expect(size int) {
	p.frame.Data, p.got = make([]byte, size), 0
	p.step = stepData
}

func (p *Parser) resync() (byte, *Frame) {
	p.step = stepSync
	return syncREQ, nil
}

func (p *Parser) done() (byte, *Frame) {
	f := p.frame
	p.frame, p.step = nil, stepSeq
	return 0, f
}
