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
	"io"
	"math"
)

// Writer emits a msgpack byte stream one token at a time. Callers are
// responsible for writing exactly the Len (or 2*Len, for maps) element
// tokens that follow an array/map header.
type Writer struct {
	w   io.Writer
	buf [9]byte
}

// NewWriter wraps w as a token-oriented msgpack writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits a single token.
func (w *Writer) Write(tok Token) error {
	switch tok.Kind {
	case KindNil:
		return w.writeByte(0xc0)
	case KindBool:
		if tok.Bool {
			return w.writeByte(0xc3)
		}
		return w.writeByte(0xc2)
	case KindInt:
		return w.writeInt(tok.Int)
	case KindUint:
		return w.writeUint(tok.Uint)
	case KindFloat32:
		return w.writeFloat32(tok.Float32)
	case KindFloat64:
		return w.writeFloat64(tok.Float64)
	case KindStr:
		return w.writeStr(tok.Str)
	case KindBin:
		return w.writeBin(tok.Bin)
	case KindArrayHeader:
		return w.writeContainerLen(listContainer, tok.Len)
	case KindMapHeader:
		return w.writeContainerLen(mapContainer, tok.Len)
	case KindExt:
		return w.writeExt(tok.ExtID, tok.Bin)
	default:
		return malformed("cannot write unknown token kind %v", tok.Kind)
	}
}

// WriteExt is a convenience for emitting a complete ext envelope,
// equivalent to Write(Token{Kind: KindExt, ExtID: id, Bin: payload}).
func (w *Writer) WriteExt(id int8, payload []byte) error {
	return w.writeExt(id, payload)
}

func (w *Writer) writeInt(i int64) error {
	switch {
	case i >= -32 && i <= math.MaxInt8:
		return w.writeByte(byte(i))
	case i < -32 && i >= math.MinInt8:
		w.buf[0], w.buf[1] = 0xd0, byte(i)
		return w.writeBuf(2)
	case i >= math.MinInt16 && i <= math.MaxInt16:
		w.buf[0] = 0xd1
		binary.BigEndian.PutUint16(w.buf[1:3], uint16(i))
		return w.writeBuf(3)
	case i >= math.MinInt32 && i <= math.MaxInt32:
		w.buf[0] = 0xd2
		binary.BigEndian.PutUint32(w.buf[1:5], uint32(i))
		return w.writeBuf(5)
	default:
		w.buf[0] = 0xd3
		binary.BigEndian.PutUint64(w.buf[1:9], uint64(i))
		return w.writeBuf(9)
	}
}

func (w *Writer) writeUint(u uint64) error {
	switch {
	case u <= math.MaxInt8:
		return w.writeByte(byte(u))
	case u <= math.MaxUint8:
		w.buf[0], w.buf[1] = 0xcc, byte(u)
		return w.writeBuf(2)
	case u <= math.MaxUint16:
		w.buf[0] = 0xcd
		binary.BigEndian.PutUint16(w.buf[1:3], uint16(u))
		return w.writeBuf(3)
	case u <= math.MaxUint32:
		w.buf[0] = 0xce
		binary.BigEndian.PutUint32(w.buf[1:5], uint32(u))
		return w.writeBuf(5)
	default:
		w.buf[0] = 0xcf
		binary.BigEndian.PutUint64(w.buf[1:9], u)
		return w.writeBuf(9)
	}
}

func (w *Writer) writeFloat32(f float32) error {
	w.buf[0] = 0xca
	binary.BigEndian.PutUint32(w.buf[1:5], math.Float32bits(f))
	return w.writeBuf(5)
}

func (w *Writer) writeFloat64(f float64) error {
	w.buf[0] = 0xcb
	binary.BigEndian.PutUint64(w.buf[1:9], math.Float64bits(f))
	return w.writeBuf(9)
}

func (w *Writer) writeStr(s string) error {
	l := len(s)
	switch {
	case l < 32:
		if err := w.writeByte(0xa0 | byte(l)); err != nil {
			return err
		}
	case l < 256:
		w.buf[0], w.buf[1] = 0xd9, byte(l)
		if err := w.writeBuf(2); err != nil {
			return err
		}
	case l < 65536:
		w.buf[0] = 0xda
		binary.BigEndian.PutUint16(w.buf[1:3], uint16(l))
		if err := w.writeBuf(3); err != nil {
			return err
		}
	default:
		w.buf[0] = 0xdb
		binary.BigEndian.PutUint32(w.buf[1:5], uint32(l))
		if err := w.writeBuf(5); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w.w, s)
	return err
}

func (w *Writer) writeBin(bs []byte) error {
	l := len(bs)
	switch {
	case l < 256:
		w.buf[0], w.buf[1] = 0xc4, byte(l)
		if err := w.writeBuf(2); err != nil {
			return err
		}
	case l < 65536:
		w.buf[0] = 0xc5
		binary.BigEndian.PutUint16(w.buf[1:3], uint16(l))
		if err := w.writeBuf(3); err != nil {
			return err
		}
	default:
		w.buf[0] = 0xc6
		binary.BigEndian.PutUint32(w.buf[1:5], uint32(l))
		if err := w.writeBuf(5); err != nil {
			return err
		}
	}
	_, err := w.w.Write(bs)
	return err
}

func (w *Writer) writeContainerLen(ct containerType, l int) error {
	switch {
	case l < int(ct.cutoff):
		return w.writeByte(ct.b0 | byte(l))
	case l < 65536:
		w.buf[0] = ct.b1
		binary.BigEndian.PutUint16(w.buf[1:3], uint16(l))
		return w.writeBuf(3)
	default:
		w.buf[0] = ct.b2
		binary.BigEndian.PutUint32(w.buf[1:5], uint32(l))
		return w.writeBuf(5)
	}
}

func (w *Writer) writeExt(id int8, payload []byte) error {
	l := len(payload)
	switch {
	case l == 1 || l == 2 || l == 4 || l == 8 || l == 16:
		w.buf[0] = extFixedDescriptor(l)
		w.buf[1] = byte(id)
		if err := w.writeBuf(2); err != nil {
			return err
		}
	case l < 256:
		w.buf[0], w.buf[1], w.buf[2] = 0xc7, byte(l), byte(id)
		if err := w.writeBuf(3); err != nil {
			return err
		}
	case l < 65536:
		w.buf[0] = 0xc8
		binary.BigEndian.PutUint16(w.buf[1:3], uint16(l))
		w.buf[3] = byte(id)
		if err := w.writeBuf(4); err != nil {
			return err
		}
	default:
		w.buf[0] = 0xc9
		binary.BigEndian.PutUint32(w.buf[1:5], uint32(l))
		w.buf[5] = byte(id)
		if err := w.writeBuf(6); err != nil {
			return err
		}
	}
	_, err := w.w.Write(payload)
	return err
}

func extFixedDescriptor(l int) byte {
	switch l {
	case 1:
		return 0xd4
	case 2:
		return 0xd5
	case 4:
		return 0xd6
	case 8:
		return 0xd7
	default:
		return 0xd8
	}
}

func (w *Writer) writeByte(b byte) error {
	w.buf[0] = b
	return w.writeBuf(1)
}

func (w *Writer) writeBuf(n int) error {
	_, err := w.w.Write(w.buf[:n])
	return err
}
