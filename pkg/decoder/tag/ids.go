package tag

// Well-known tag ids written by eMule-family clients and the Kademlia node.
const (
	IDFileName           uint8 = 0x01
	IDFileSize           uint8 = 0x02
	IDFileType           uint8 = 0x03
	IDFileFormat         uint8 = 0x04
	IDLastSeenComplete   uint8 = 0x05
	IDTransferred        uint8 = 0x08
	IDGapStart           uint8 = 0x09
	IDGapEnd             uint8 = 0x0A
	IDPartFileName       uint8 = 0x12
	IDOldDLPriority      uint8 = 0x13
	IDStatus             uint8 = 0x14
	IDSources            uint8 = 0x15
	IDPermissions        uint8 = 0x16
	IDOldULPriority      uint8 = 0x17
	IDDLPriority         uint8 = 0x18
	IDULPriority         uint8 = 0x19
	IDCompression        uint8 = 0x1A
	IDCorrupted          uint8 = 0x1B
	IDKadLastPublishKey  uint8 = 0x20
	IDKadLastPublishSrc  uint8 = 0x21
	IDFlags              uint8 = 0x22
	IDDLActiveTime       uint8 = 0x23
	IDCorruptedParts     uint8 = 0x24
	IDDLPreview          uint8 = 0x25
	IDKadLastPublishNote uint8 = 0x26
	IDAICHHash           uint8 = 0x27
	IDFileHash           uint8 = 0x28
	IDCompleteSources    uint8 = 0x30
	IDCollectionAuthor   uint8 = 0x31
	IDCollectionAuthKey  uint8 = 0x32
	IDPublishInfo        uint8 = 0x33
	IDLastShared         uint8 = 0x34
	IDAICHHashSet        uint8 = 0x35
	IDFileSizeHi         uint8 = 0x3A
	IDAllTimeTransferred uint8 = 0x50
	IDAllTimeRequested   uint8 = 0x51
	IDAllTimeAccepted    uint8 = 0x52
	IDCategory           uint8 = 0x53
	IDAllTimeTransHi     uint8 = 0x54
	IDMaxSources         uint8 = 0x55
	IDMediaArtist        uint8 = 0xD0
	IDMediaAlbum         uint8 = 0xD1
	IDMediaTitle         uint8 = 0xD2
	IDMediaLength        uint8 = 0xD3
	IDMediaBitrate       uint8 = 0xD4
	IDMediaCodec         uint8 = 0xD5
	IDEncryption         uint8 = 0xF3
	IDFileComment        uint8 = 0xF6
	IDFileRating         uint8 = 0xF7
	IDSourceUDPPort      uint8 = 0xFC
	IDSourcePort         uint8 = 0xFD
	IDSourceIP           uint8 = 0xFE
	IDSourceType         uint8 = 0xFF
)

// UINT32 tags with these ids carry Unix-epoch timestamps.
var datetimeIDs = map[uint8]bool{
	IDLastSeenComplete:  true,
	IDKadLastPublishKey: true,
	IDKadLastPublishSrc: true,
	IDLastShared:        true,
}

// UINT32 tags with these ids carry durations in seconds.
var durationIDs = map[uint8]bool{
	IDDLActiveTime: true,
	IDMediaLength:  true,
}
