package session

import (
	"fmt"
	"io"

	"github.com/riftcrane/raknet/raknet"
)

// HandleFrame processes one datagram already known (by Manager) to belong
// to this Session. It never blocks on the network; delivered messages are
// queued on the internal channel Recv reads from.
func (s *Session) HandleFrame(data []byte) error {
	s.resetTimeout()

	if len(data) < frameHdrSize {
		return fmt.Errorf("session: %w: frame header", io.ErrUnexpectedEOF)
	}
	channel := data[1]
	if int(channel) >= ChannelCount {
		return fmt.Errorf("session: invalid channel number: %d", channel)
	}

	// processFrame expects the rawType byte first, followed by the frame
	// body that comes after the channel byte on the wire.
	body := append([]byte{data[0]}, data[frameHdrSize:]...)
	return s.processFrame(channel, body)
}

func (s *Session) processFrame(channel uint8, body []byte) error {
	if len(body) < 1 {
		return fmt.Errorf("session: %w: frame type", io.ErrUnexpectedEOF)
	}

	switch t := rawType(body[0]); t {
	case rawTypeCtl:
		return s.processCtl(channel, body[1:])
	case rawTypeOrig:
		s.deliver(raknet.RakMessage{
			Payload:     append([]byte(nil), body[1:]...),
			Reliability: raknet.Unreliable,
			Channel:     channel,
		})
		return nil
	case rawTypeSplit:
		return s.processSplit(channel, body[1:])
	case rawTypeRel:
		return s.processRel(channel, body[1:])
	default:
		return fmt.Errorf("session: unsupported frame type: %d", t)
	}
}

func (s *Session) processCtl(channel uint8, body []byte) error {
	if len(body) < 1 {
		return fmt.Errorf("session: %w: ctl type", io.ErrUnexpectedEOF)
	}
	switch ct := ctlType(body[0]); ct {
	case ctlAck:
		if len(body) < 1+2 {
			return io.ErrUnexpectedEOF
		}
		sn := seqnum(be.Uint16(body[1:3]))
		ch := &s.chans[channel]
		if ackCh, ok := ch.ackChans.LoadAndDelete(sn); ok {
			close(ackCh.(chan struct{}))
		}
	case ctlPing:
		// keepalive only; resetTimeout already ran.
	case ctlDisco:
		s.Close()
	default:
		return fmt.Errorf("session: unsupported ctl type: %d", ct)
	}
	return nil
}

func (s *Session) processSplit(channel uint8, body []byte) error {
	if len(body) < 2+2+2 {
		return io.ErrUnexpectedEOF
	}
	sn := seqnum(be.Uint16(body[0:2]))
	count := be.Uint16(body[2:4])
	i := be.Uint16(body[4:6])
	if i >= count {
		return nil
	}

	ch := &s.chans[channel]
	entry, ok := ch.inSplit[sn]
	if !ok {
		entry = &inSplit{chunks: make([][]byte, count)}
		ch.inSplit[sn] = entry
	}
	if int(count) != len(entry.chunks) {
		return fmt.Errorf("session: chunk count changed on split message: %d", sn)
	}

	if entry.chunks[i] == nil {
		entry.chunks[i] = body[6:]
		entry.size += len(entry.chunks[i])
		entry.got++
	}

	if entry.got == len(entry.chunks) {
		payload := make([]byte, 0, entry.size)
		for _, chunk := range entry.chunks {
			payload = append(payload, chunk...)
		}
		delete(ch.inSplit, sn)
		s.deliver(raknet.RakMessage{Payload: payload, Reliability: raknet.Unreliable, Channel: channel})
	}
	return nil
}

func (s *Session) processRel(channel uint8, body []byte) error {
	if len(body) < 2 {
		return io.ErrUnexpectedEOF
	}
	sn := seqnum(be.Uint16(body[0:2]))

	ack := []byte{uint8(rawTypeCtl), uint8(ctlAck), 0, 0}
	be.PutUint16(ack[2:4], uint16(sn))
	if err := s.writeFrame(channel, ack); err != nil {
		return fmt.Errorf("session: ack seqnum %d: %w", sn, err)
	}

	ch := &s.chans[channel]
	if sn-ch.inRelSN >= 0x8000 {
		return nil // already delivered
	}
	ch.inRel[sn] = append([]byte(nil), body[2:]...)

	for {
		inner, ok := ch.inRel[ch.inRelSN]
		if !ok {
			break
		}
		delete(ch.inRel, ch.inRelSN)
		ch.inRelSN++

		if err := s.processFrameReliable(channel, inner); err != nil {
			return err
		}
	}
	return nil
}

// processFrameReliable handles the inner Orig/Split frame carried by a
// rawTypeRel wrapper, tagging delivered messages ReliableOrdered.
func (s *Session) processFrameReliable(channel uint8, body []byte) error {
	if len(body) < 1 {
		return fmt.Errorf("session: %w: inner frame type", io.ErrUnexpectedEOF)
	}
	switch t := rawType(body[0]); t {
	case rawTypeOrig:
		s.deliver(raknet.RakMessage{
			Payload:     append([]byte(nil), body[1:]...),
			Reliability: raknet.ReliableOrdered,
			Channel:     channel,
		})
		return nil
	case rawTypeSplit:
		return s.processSplitReliable(channel, body[1:])
	default:
		return fmt.Errorf("session: unsupported reliable inner frame type: %d", t)
	}
}

func (s *Session) processSplitReliable(channel uint8, body []byte) error {
	if len(body) < 2+2+2 {
		return io.ErrUnexpectedEOF
	}
	sn := seqnum(be.Uint16(body[0:2]))
	count := be.Uint16(body[2:4])
	i := be.Uint16(body[4:6])
	if i >= count {
		return nil
	}

	ch := &s.chans[channel]
	entry, ok := ch.inSplit[sn]
	if !ok {
		entry = &inSplit{chunks: make([][]byte, count)}
		ch.inSplit[sn] = entry
	}
	if entry.chunks[i] == nil {
		entry.chunks[i] = body[6:]
		entry.size += len(entry.chunks[i])
		entry.got++
	}
	if entry.got == len(entry.chunks) {
		payload := make([]byte, 0, entry.size)
		for _, chunk := range entry.chunks {
			payload = append(payload, chunk...)
		}
		delete(ch.inSplit, sn)
		s.deliver(raknet.RakMessage{Payload: payload, Reliability: raknet.ReliableOrdered, Channel: channel})
	}
	return nil
}

func (s *Session) deliver(msg raknet.RakMessage) {
	select {
	case s.msgs <- msg:
	case <-s.disco:
	}
}
