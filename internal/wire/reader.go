/*
go-msgpack - Msgpack library for Go. Provides pack/unpack and net/rpc support.
https://github.com/ugorji/go-msgpack

Copyright (c) 2012, 2013 Ugorji Nwoke.
All rights reserved.

Redistribution and use in source and binary forms, with or without modification,
are permitted provided that the following conditions are met:

* Redistributions of source code must retain the above copyright notice,
  this list of conditions and the following disclaimer.
* Redistributions in binary form must reproduce the above copyright notice,
  this list of conditions and the following disclaimer in the documentation
  and/or other materials provided with the distribution.
* Neither the name of the author nor the names of its contributors may be used
  to endorse or promote products derived from this software
  without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS" AND
ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED
WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE FOR
ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES
(INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES;
LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON
ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF THIS
SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MalformedError reports a broken msgpack framing or truncated input.
// It is surfaced verbatim by the caller, per the adapter's contract of
// not interpreting anything beyond raw msgpack framing.
type MalformedError struct {
	Msg string
}

func (e *MalformedError) Error() string { return "malformed msgpack: " + e.Msg }

func malformed(format string, args ...interface{}) error {
	return &MalformedError{Msg: fmt.Sprintf(format, args...)}
}

type containerType struct {
	cutoff byte
	b0     byte
	b1     byte
	b2     byte
}

var (
	listContainer = containerType{16, 0x90, 0xdc, 0xdd}
	mapContainer  = containerType{16, 0x80, 0xde, 0xdf}
)

// Reader is a pull parser over a msgpack byte stream: each call to Next
// returns exactly one Token, with array/map container elements read as
// subsequent, separate tokens by the caller.
type Reader struct {
	r   io.Reader
	buf [8]byte
}

// NewReader wraps r as a token-oriented msgpack reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next reads and returns the next token in the stream.
func (r *Reader) Next() (Token, error) {
	bd, err := r.readByte()
	if err != nil {
		return Token{}, err
	}
	return r.decodeFrom(bd)
}

func (r *Reader) decodeFrom(bd byte) (Token, error) {
	switch {
	case bd == 0xc0:
		return Token{Kind: KindNil}, nil
	case bd == 0xc2:
		return Token{Kind: KindBool, Bool: false}, nil
	case bd == 0xc3:
		return Token{Kind: KindBool, Bool: true}, nil
	case bd == 0xca:
		v, err := r.readUint32()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindFloat32, Float32: math.Float32frombits(v)}, nil
	case bd == 0xcb:
		v, err := r.readUint64()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindFloat64, Float64: math.Float64frombits(v)}, nil
	case bd == 0xcc:
		v, err := r.readUint8()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: uint64(v)}, nil
	case bd == 0xcd:
		v, err := r.readUint16()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: uint64(v)}, nil
	case bd == 0xce:
		v, err := r.readUint32()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: uint64(v)}, nil
	case bd == 0xcf:
		v, err := r.readUint64()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindUint, Uint: v}, nil
	case bd == 0xd0:
		v, err := r.readUint8()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(int8(v))}, nil
	case bd == 0xd1:
		v, err := r.readUint16()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(int16(v))}, nil
	case bd == 0xd2:
		v, err := r.readUint32()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(int32(v))}, nil
	case bd == 0xd3:
		v, err := r.readUint64()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindInt, Int: int64(v)}, nil
	case bd >= 0x00 && bd <= 0x7f:
		return Token{Kind: KindInt, Int: int64(int8(bd))}, nil
	case bd >= 0xe0:
		return Token{Kind: KindInt, Int: int64(int8(bd))}, nil
	case bd == 0xd9, bd == 0xda, bd == 0xdb, bd >= 0xa0 && bd <= 0xbf:
		clen, err := r.readStrLen(bd)
		if err != nil {
			return Token{}, err
		}
		bs := make([]byte, clen)
		if err := r.readFull(bs); err != nil {
			return Token{}, err
		}
		return Token{Kind: KindStr, Str: string(bs)}, nil
	case bd == 0xc4 || bd == 0xc5 || bd == 0xc6:
		clen, err := r.readBinLen(bd)
		if err != nil {
			return Token{}, err
		}
		bs := make([]byte, clen)
		if err := r.readFull(bs); err != nil {
			return Token{}, err
		}
		return Token{Kind: KindBin, Bin: bs}, nil
	case bd == 0xdc, bd == 0xdd, bd >= 0x90 && bd <= 0x9f:
		clen, err := r.readContainerLen(bd, listContainer)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindArrayHeader, Len: clen}, nil
	case bd == 0xde, bd == 0xdf, bd >= 0x80 && bd <= 0x8f:
		clen, err := r.readContainerLen(bd, mapContainer)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindMapHeader, Len: clen}, nil
	case bd >= 0xd4 && bd <= 0xd8, bd >= 0xc7 && bd <= 0xc9:
		return r.decodeExt(bd)
	default:
		return Token{}, malformed("unrecognized descriptor byte 0x%x", bd)
	}
}

func (r *Reader) decodeExt(bd byte) (Token, error) {
	var clen int
	var err error
	switch {
	case bd >= 0xd4 && bd <= 0xd8:
		clen = 1 << (bd - 0xd4)
	case bd == 0xc7:
		v, e := r.readUint8()
		clen, err = int(v), e
	case bd == 0xc8:
		v, e := r.readUint16()
		clen, err = int(v), e
	case bd == 0xc9:
		v, e := r.readUint32()
		clen, err = int(v), e
	default:
		return Token{}, malformed("unrecognized ext descriptor byte 0x%x", bd)
	}
	if err != nil {
		return Token{}, err
	}
	tagByte, err := r.readByte()
	if err != nil {
		return Token{}, err
	}
	payload := make([]byte, clen)
	if err := r.readFull(payload); err != nil {
		return Token{}, err
	}
	return Token{Kind: KindExt, ExtID: int8(tagByte), Bin: payload}, nil
}

func (r *Reader) readContainerLen(bd byte, ct containerType) (int, error) {
	switch {
	case bd == ct.b1:
		v, err := r.readUint16()
		return int(v), err
	case bd == ct.b2:
		v, err := r.readUint32()
		return int(v), err
	case (ct.b0 & bd) == ct.b0:
		return int(ct.b0 ^ bd), nil
	default:
		return 0, malformed("bad container length descriptor 0x%x", bd)
	}
}

func (r *Reader) readStrLen(bd byte) (int, error) {
	switch {
	case bd == 0xd9:
		v, err := r.readUint8()
		return int(v), err
	case bd == 0xda:
		v, err := r.readUint16()
		return int(v), err
	case bd == 0xdb:
		v, err := r.readUint32()
		return int(v), err
	case bd >= 0xa0 && bd <= 0xbf:
		return int(bd & 0x1f), nil
	default:
		return 0, malformed("bad str length descriptor 0x%x", bd)
	}
}

func (r *Reader) readBinLen(bd byte) (int, error) {
	switch bd {
	case 0xc4:
		v, err := r.readUint8()
		return int(v), err
	case 0xc5:
		v, err := r.readUint16()
		return int(v), err
	case 0xc6:
		v, err := r.readUint32()
		return int(v), err
	default:
		return 0, malformed("bad bin length descriptor 0x%x", bd)
	}
}

func (r *Reader) readByte() (byte, error) {
	if err := r.readFull(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

func (r *Reader) readUint8() (uint8, error) {
	b, err := r.readByte()
	return uint8(b), err
}

func (r *Reader) readUint16() (uint16, error) {
	if err := r.readFull(r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.buf[:2]), nil
}

func (r *Reader) readUint32() (uint32, error) {
	if err := r.readFull(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.buf[:4]), nil
}

func (r *Reader) readUint64() (uint64, error) {
	if err := r.readFull(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(r.buf[:8]), nil
}

func (r *Reader) readFull(bs []byte) error {
	if len(bs) == 0 {
		return nil
	}
	n, err := io.ReadFull(r.r, bs)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return malformed("truncated input: wanted %d bytes, got %d", len(bs), n)
		}
		return err
	}
	return nil
}
