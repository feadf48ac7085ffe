package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const echoData = "outagemon"

// ICMPProber sends ICMP echo requests using raw sockets.
type ICMPProber struct {
	id  int
	seq uint32
}

// NewICMPProber initializes a prober with a process-scoped identifier.
func NewICMPProber() (*ICMPProber, error) {
	return &ICMPProber{id: os.Getpid() & 0xffff}, nil
}

// Probe sends one ICMP echo request and waits for the reply.
func (p *ICMPProber) Probe(ctx context.Context, addr string, timeout time.Duration) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Success: false, Err: err}
	}

	ip, ipNet, err := resolveIP(addr)
	if err != nil {
		return Outcome{Success: false, Err: err}
	}

	network, protocol, requestType, replyType := icmpSettings(ipNet)
	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return Outcome{Success: false, Err: err}
	}
	defer conn.Close()

	seq := p.nextSeq()
	msg := icmp.Message{
		Type: requestType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: []byte(echoData),
		},
	}

	payload, err := msg.Marshal(nil)
	if err != nil {
		return Outcome{Success: false, Err: err}
	}

	deadline := effectiveDeadline(ctx, timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return Outcome{Success: false, Err: err}
	}

	start := time.Now()
	if _, err := conn.WriteTo(payload, ip); err != nil {
		return Outcome{Success: false, Err: err}
	}

	buf := make([]byte, 1500)
	for {
		if err := ctx.Err(); err != nil {
			return Outcome{Success: false, Err: err}
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return Outcome{Success: false, Err: fmt.Errorf("probe timeout: %w", err)}
			}
			return Outcome{Success: false, Err: err}
		}
		if peer == nil {
			continue
		}

		reply, err := icmp.ParseMessage(protocol, buf[:n])
		if err != nil {
			continue
		}
		if reply.Type != replyType {
			continue
		}
		body, ok := reply.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		if body.ID != p.id || body.Seq != seq {
			continue
		}

		return Outcome{Success: true, Latency: time.Since(start)}
	}
}

// nextSeq advances the shared sequence counter. Echo.Seq is 16 bits on the
// wire, so the value must be truncated here or replies stop matching once
// the counter passes 65535.
func (p *ICMPProber) nextSeq() int {
	return int(uint16(atomic.AddUint32(&p.seq, 1)))
}

func resolveIP(addr string) (*net.IPAddr, net.IP, error) {
	ipAddr, err := net.ResolveIPAddr("ip", addr)
	if err != nil {
		return nil, nil, err
	}
	if ipAddr.IP == nil {
		return nil, nil, fmt.Errorf("invalid IP address: %s", addr)
	}
	return ipAddr, ipAddr.IP, nil
}

func icmpSettings(ip net.IP) (network string, protocol int, requestType icmp.Type, replyType icmp.Type) {
	if ip.To4() != nil {
		return "ip4:icmp", ipv4.ICMPTypeEcho.Protocol(), ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	}
	return "ip6:ipv6-icmp", ipv6.ICMPTypeEchoRequest.Protocol(), ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
}

func effectiveDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
