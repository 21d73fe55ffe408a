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

// Package wire is the msgpack codec adapter: a thin bidirectional bridge
// between raw bytes and the msgpack token family. It emits and consumes
// nil, bool, int, uint, float, str, bin, array, map and ext tokens, and
// deliberately does not interpret ext ids — that is tobytes semantics,
// layered on top by the caller.
package wire

// Kind identifies which msgpack primitive family a Token carries.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat32
	KindFloat64
	KindStr
	KindBin
	KindArrayHeader
	KindMapHeader
	KindExt
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindStr:
		return "str"
	case KindBin:
		return "bin"
	case KindArrayHeader:
		return "array"
	case KindMapHeader:
		return "map"
	case KindExt:
		return "ext"
	default:
		return "unknown"
	}
}

// Token is one decoded msgpack primitive. Array and map tokens carry only
// their length in Len; the caller is responsible for reading exactly Len
// (or 2*Len, for maps) further tokens to consume the container's elements.
// Ext tokens carry the raw extension id and payload bytes verbatim,
// uninterpreted.
type Token struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Uint    uint64
	Float32 float32
	Float64 float64
	Str     string
	Bin     []byte // KindBin payload, or KindExt payload
	Len     int    // KindArrayHeader / KindMapHeader element count
	ExtID   int8   // KindExt extension type id
}
