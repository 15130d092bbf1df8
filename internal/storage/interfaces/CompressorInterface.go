package interfaces

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	// Encoding is the HTTP content-coding name of the format.
	Encoding() string
	Close()
}
