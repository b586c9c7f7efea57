package session

import (
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/riftcrane/raknet/raknet"
)

var ErrMessageTooBig = errors.New("session: message too big")
var ErrChannelTooBig = errors.New("session: channel number >= ChannelCount")

// reliable reports whether r requires an ack-gated resend loop. This
// collapses RakNet's five-way reliability enum onto the teacher's
// two-way reliable/unreliable split: Reliable and ReliableOrdered both
// use the ack+resend path and are identical on the wire, and the receiver
// delivers every reliable frame in sequence order via
// channelState.inRelSN, tagged ReliableOrdered; Unreliable,
// UnreliableSequenced and ReliableSequenced are all sent fire-and-forget.
// Sequenced's "a newer message supersedes an older one" semantics are not
// separately implemented — see DESIGN.md.
func reliable(r raknet.Reliability) bool {
	return r == raknet.Reliable || r == raknet.ReliableOrdered
}

// Send transmits msg to the peer. For Reliable/ReliableOrdered messages
// it blocks until the message (and, if split, every chunk) has been
// queued for its first send, but does not wait for the ack — callers
// that need delivery confirmation should track the returned error only
// as a local queuing failure.
func (s *Session) Send(msg raknet.RakMessage) error {
	if int(msg.Channel) >= ChannelCount {
		return ErrChannelTooBig
	}
	if s.isClosed() {
		return net.ErrClosed
	}

	unrel := !reliable(msg.Reliability)
	hdr := frameHdrSize
	if !unrel {
		hdr += relHdrSize
	}

	if hdr+origHdrSize+len(msg.Payload) > MaxDatagramSize {
		return s.sendSplit(msg, unrel)
	}

	data := append([]byte{uint8(rawTypeOrig)}, msg.Payload...)
	if unrel {
		return s.writeFrame(msg.Channel, data)
	}
	return s.sendRel(msg.Channel, data)
}

func (s *Session) sendSplit(msg raknet.RakMessage, unrel bool) error {
	hdr := frameHdrSize
	if !unrel {
		hdr += relHdrSize
	}
	chunkSize := MaxDatagramSize - (hdr + splitHdrSize)
	chunks := splitBytes(msg.Payload, chunkSize)
	if len(chunks) > math.MaxUint16 {
		return ErrMessageTooBig
	}

	ch := &s.chans[msg.Channel]
	ch.outSplitMu.Lock()
	sn := ch.outSplitSN
	ch.outSplitSN++
	ch.outSplitMu.Unlock()

	for i, chunk := range chunks {
		data := make([]byte, splitHdrSize+len(chunk))
		data[0] = uint8(rawTypeSplit)
		be.PutUint16(data[1:3], uint16(sn))
		be.PutUint16(data[3:5], uint16(len(chunks)))
		be.PutUint16(data[5:7], uint16(i))
		copy(data[splitHdrSize:], chunk)

		var err error
		if unrel {
			err = s.writeFrame(msg.Channel, data)
		} else {
			err = s.sendRel(msg.Channel, data)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) sendRel(channel uint8, data []byte) error {
	ch := &s.chans[channel]

	ch.outRelMu.Lock()
	defer ch.outRelMu.Unlock()

	for sn := ch.outRelSN; sn-ch.outRelWin >= 0x8000; ch.outRelWin++ {
		if ackCh, ok := ch.ackChans.Load(ch.outRelWin); ok {
			<-ackCh.(chan struct{})
		}
	}
	sn := ch.outRelSN
	ch.outRelSN++

	ackCh := make(chan struct{})
	ch.ackChans.Store(sn, ackCh)

	relData := make([]byte, relHdrSize+len(data))
	relData[0] = uint8(rawTypeRel)
	be.PutUint16(relData[1:3], uint16(sn))
	copy(relData[relHdrSize:], data)

	if err := s.writeFrame(channel, relData); err != nil {
		ch.ackChans.Delete(sn)
		return err
	}

	go s.resendLoop(channel, sn, relData, ackCh)
	return nil
}

func (s *Session) resendLoop(channel uint8, sn seqnum, relData []byte, ack chan struct{}) {
	for {
		select {
		case <-time.After(resendInterval):
			if err := s.writeFrame(channel, relData); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					s.reportErr(fmt.Errorf("session: resend seqnum %d: %w", sn, err))
				}
				return
			}
		case <-ack:
			return
		case <-s.disco:
			return
		}
	}
}

func splitBytes(data []byte, chunkSize int) [][]byte {
	chunks := make([][]byte, 0, (len(data)+chunkSize-1)/chunkSize)
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	return chunks
}
