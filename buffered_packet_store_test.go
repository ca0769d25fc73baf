package qdemux

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/internal/utils"
)

func newTestPacketStore() (*bufferedPacketStore, *manualAlarmFactory, *[]ConnectionID) {
	alarms := &manualAlarmFactory{}
	expired := &[]ConnectionID{}
	store := newBufferedPacketStore(alarms, func(connID ConnectionID, _ *bufferedPacketList) {
		*expired = append(*expired, connID)
	}, utils.DefaultLogger)
	return store, alarms, expired
}

func storePacket(data ...byte) ReceivedPacket {
	return ReceivedPacket{Data: data, RemoteAddr: newClientAddr(4242), RcvTime: time.Now()}
}

func TestPacketStoreEnqueueAndDeliver(t *testing.T) {
	store, _, _ := newTestPacketStore()
	connID := connIDFromBytes(1, 2, 3, 4, 5, 6, 7, 8)

	require.False(t, store.HasBufferedPackets(connID))
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID, storePacket(0x01), Version1, nil))
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID, storePacket(0x02), Version1, nil))
	require.True(t, store.HasBufferedPackets(connID))
	require.False(t, store.HasChloForConnection(connID))

	list, ok := store.DeliverPackets(connID)
	require.True(t, ok)
	require.Equal(t, connID, list.connID)
	require.Equal(t, Version1, list.version)
	require.Len(t, list.packets, 2)
	require.Equal(t, []byte{0x01}, list.packets[0].Data)
	require.Equal(t, []byte{0x02}, list.packets[1].Data)
	require.False(t, store.HasBufferedPackets(connID))

	_, ok = store.DeliverPackets(connID)
	require.False(t, ok)
}

func TestPacketStoreRejectsEmptyPackets(t *testing.T) {
	store, _, _ := newTestPacketStore()
	connID := connIDFromBytes(1, 2, 3, 4, 5, 6, 7, 8)
	require.Equal(t, EnqueueNotEnoughBytes, store.Enqueue(connID, ReceivedPacket{}, Version1, nil))
	require.False(t, store.HasBufferedPackets(connID))
}

func TestPacketStorePerConnectionPacketCap(t *testing.T) {
	store, _, _ := newTestPacketStore()
	connID := connIDFromBytes(1, 2, 3, 4, 5, 6, 7, 8)
	for i := 0; i < protocol.MaxBufferedPacketsPerConnection; i++ {
		require.Equal(t, EnqueueSuccess, store.Enqueue(connID, storePacket(byte(i)), Version1, nil))
	}
	require.Equal(t, EnqueueTooManyPackets, store.Enqueue(connID, storePacket(0xff), Version1, nil))

	list, ok := store.DeliverPackets(connID)
	require.True(t, ok)
	require.Len(t, list.packets, protocol.MaxBufferedPacketsPerConnection)
}

func TestPacketStoreConnectionCapWithoutChlo(t *testing.T) {
	store, _, _ := newTestPacketStore()
	for i := 0; i < protocol.MaxBufferedConnectionsWithoutCHLO; i++ {
		connID := protocol.ParseConnectionID(fmt.Appendf(nil, "%08d", i))
		require.Equal(t, EnqueueSuccess, store.Enqueue(connID, storePacket(0x01), Version1, nil))
	}
	overflow := connIDFromBytes(0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	require.Equal(t, EnqueueTooManyConnections, store.Enqueue(overflow, storePacket(0x01), Version1, nil))
	// connections with a complete ClientHello use the larger cap
	require.Equal(t, EnqueueSuccess, store.Enqueue(overflow, storePacket(0x01), Version1, &ParsedClientHello{}))
}

func TestPacketStoreChloOrdering(t *testing.T) {
	store, _, _ := newTestPacketStore()
	connID1 := connIDFromBytes(1, 1, 1, 1, 1, 1, 1, 1)
	connID2 := connIDFromBytes(2, 2, 2, 2, 2, 2, 2, 2)
	connID3 := connIDFromBytes(3, 3, 3, 3, 3, 3, 3, 3)

	// 1 and 3 buffer packets first, but 2 and 3 complete their ClientHello first
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID1, storePacket(0x01), Version1, nil))
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID3, storePacket(0x03), Version1, nil))
	require.False(t, store.HasChlosBuffered())
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID2, storePacket(0x02), Version1, &ParsedClientHello{SNI: "two"}))
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID3, storePacket(0x03), Version1, &ParsedClientHello{SNI: "three"}))
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID1, storePacket(0x01), Version1, &ParsedClientHello{SNI: "one"}))
	require.True(t, store.HasChlosBuffered())

	var snis []string
	for {
		list, ok := store.DeliverPacketsForNextConnection()
		if !ok {
			break
		}
		snis = append(snis, list.chlo.SNI)
	}
	require.Equal(t, []string{"two", "three", "one"}, snis)
	require.False(t, store.HasChlosBuffered())
}

func TestPacketStoreSkipsStaleChloReferences(t *testing.T) {
	store, _, _ := newTestPacketStore()
	connID := connIDFromBytes(1, 2, 3, 4, 5, 6, 7, 8)

	require.Equal(t, EnqueueSuccess, store.Enqueue(connID, storePacket(0x01), Version1, &ParsedClientHello{}))
	store.DiscardPackets(connID)
	_, ok := store.DeliverPacketsForNextConnection()
	require.False(t, ok)

	// the same connection ID buffered again gets a fresh serial
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID, storePacket(0x02), Version1, &ParsedClientHello{}))
	list, ok := store.DeliverPacketsForNextConnection()
	require.True(t, ok)
	require.Equal(t, []byte{0x02}, list.packets[0].Data)
}

func TestPacketStoreExpiry(t *testing.T) {
	store, alarms, expired := newTestPacketStore()
	start := time.Now()
	store.nowFunc = func() time.Time { return start }
	connID1 := connIDFromBytes(1, 1, 1, 1, 1, 1, 1, 1)
	connID2 := connIDFromBytes(2, 2, 2, 2, 2, 2, 2, 2)

	require.Equal(t, EnqueueSuccess, store.Enqueue(connID1, storePacket(0x01), Version1, nil))
	store.nowFunc = func() time.Time { return start.Add(time.Second) }
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID2, storePacket(0x02), Version1, nil))
	require.True(t, alarms.hasPending())

	// only the first connection has aged out
	store.nowFunc = func() time.Time { return start.Add(protocol.MaxEarlyPacketAge + time.Second/2) }
	alarms.fire(start.Add(protocol.MaxEarlyPacketAge + time.Second/2))
	require.Equal(t, []ConnectionID{connID1}, *expired)
	require.False(t, store.HasBufferedPackets(connID1))
	require.True(t, store.HasBufferedPackets(connID2))
	require.True(t, alarms.hasPending())

	store.nowFunc = func() time.Time { return start.Add(protocol.MaxEarlyPacketAge + 2*time.Second) }
	alarms.fire(start.Add(protocol.MaxEarlyPacketAge + 2*time.Second))
	require.Equal(t, []ConnectionID{connID1, connID2}, *expired)
	require.False(t, store.HasBufferedPackets(connID2))
}

func TestPacketStoreDiscardAll(t *testing.T) {
	store, alarms, expired := newTestPacketStore()
	connID1 := connIDFromBytes(1, 1, 1, 1, 1, 1, 1, 1)
	connID2 := connIDFromBytes(2, 2, 2, 2, 2, 2, 2, 2)
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID1, storePacket(0x01), Version1, nil))
	require.Equal(t, EnqueueSuccess, store.Enqueue(connID2, storePacket(0x02), Version1, &ParsedClientHello{}))

	store.DiscardAllPackets()
	require.False(t, store.HasBufferedPackets(connID1))
	require.False(t, store.HasBufferedPackets(connID2))
	require.False(t, store.HasChlosBuffered())
	require.False(t, alarms.hasPending())
	require.Empty(t, *expired)
}
