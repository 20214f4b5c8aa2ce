// Package testsupport provides fake collaborators for tests: a minimal SMTP
// server and a fake FriendlyCaptcha verification endpoint.
package testsupport

import (
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"time"
)

// FakeSMTPServer speaks just enough unencrypted SMTP for net/smtp clients and
// records received messages.
type FakeSMTPServer struct {
	listener net.Listener
	mails    chan string
	poisoned bool
	closed   sync.Once
}

// StartFakeSMTPServer starts a server that accepts every message.
func StartFakeSMTPServer() (*FakeSMTPServer, error) {
	return startSMTP(false)
}

// StartPoisonedSMTPServer starts a server that rejects every MAIL command, to
// simulate a broken relay behind a healthy connection.
func StartPoisonedSMTPServer() (*FakeSMTPServer, error) {
	return startSMTP(true)
}

func startSMTP(poisoned bool) (*FakeSMTPServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &FakeSMTPServer{
		listener: listener,
		mails:    make(chan string, 16),
		poisoned: poisoned,
	}
	go s.serve()
	return s, nil
}

// URL returns the smtp:// endpoint of this server.
func (s *FakeSMTPServer) URL() string {
	return "smtp://" + s.listener.Addr().String()
}

func (s *FakeSMTPServer) Close() {
	s.closed.Do(func() { s.listener.Close() })
}

// LastMail returns the next received message, waiting up to timeout.
func (s *FakeSMTPServer) LastMail(timeout time.Duration) (string, error) {
	select {
	case mail := <-s.mails:
		return mail, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no mail received within %v", timeout)
	}
}

func (s *FakeSMTPServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *FakeSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	if err := tp.PrintfLine("220 fake.localhost ESMTP ready"); err != nil {
		return
	}
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 fake.localhost")
		case strings.HasPrefix(cmd, "MAIL"):
			if s.poisoned {
				_ = tp.PrintfLine("554 transaction failed")
			} else {
				_ = tp.PrintfLine("250 OK")
			}
		case strings.HasPrefix(cmd, "RCPT"):
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "DATA"):
			_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			content, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mails <- string(content)
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RSET"), strings.HasPrefix(cmd, "NOOP"):
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "QUIT"):
			_ = tp.PrintfLine("221 Bye")
			return
		default:
			_ = tp.PrintfLine("502 command not implemented")
		}
	}
}
