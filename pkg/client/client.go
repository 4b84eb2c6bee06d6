package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"dbc/pkg/protocol"
)

var ErrNotFound = errors.New("key not found")

// Client talks to a TCPServer. It is not safe for concurrent use. A broken
// connection is redialled once per request.
type Client struct {
	conn net.Conn
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		addr: addr,
	}, nil
}

func (c *Client) Put(key, value string) error {
	_, err := c.roundTrip(protocol.OpPut, []byte(key), []byte(value))
	return err
}

func (c *Client) Get(key string) (string, error) {
	pkg, err := c.roundTrip(protocol.OpGet, []byte(key), nil)
	if err != nil {
		return "", err
	}
	return string(pkg.Value), nil
}

func (c *Client) Delete(key string) error {
	_, err := c.roundTrip(protocol.OpDel, []byte(key), nil)
	return err
}

func (c *Client) Size() (int, error) {
	pkg, err := c.roundTrip(protocol.OpSize, nil, nil)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeCount(pkg.Value)
}

func (c *Client) Keys() ([]string, error) {
	pkg, err := c.roundTrip(protocol.OpKeys, nil, nil)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeStrings(pkg.Value)
}

func (c *Client) Clear() error {
	_, err := c.roundTrip(protocol.OpClear, nil, nil)
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(op byte, key, val []byte) (*protocol.Packet, error) {
	pkg, err := c.send(op, key, val)
	if err != nil {
		if rerr := c.reconnect(); rerr != nil {
			return nil, fmt.Errorf("%w (reconnect: %v)", err, rerr)
		}
		if pkg, err = c.send(op, key, val); err != nil {
			return nil, err
		}
	}

	switch pkg.Op {
	case protocol.RespOK, protocol.RespVal:
		return pkg, nil
	case protocol.RespNotFound:
		return nil, ErrNotFound
	case protocol.RespErr:
		return nil, fmt.Errorf("server: %s", pkg.Value)
	default:
		return nil, errors.New("unknown response")
	}
}

func (c *Client) send(op byte, key, val []byte) (*protocol.Packet, error) {
	if err := protocol.Encode(c.conn, op, key, val); err != nil {
		return nil, err
	}
	return protocol.Decode(c.conn)
}

func (c *Client) reconnect() error {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}
