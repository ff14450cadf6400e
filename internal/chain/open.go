package chain

import (
	"context"

	"go.uber.org/zap"
)

const (
	ModeSimulated = "simulated"
	ModeEthereum  = "ethereum"
)

// Open builds the issuer selected by opts.Simulated. The returned close
// function releases the network client, if any.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Issuer, string, func(), error) {
	if opts.Simulated {
		log.Info("issuer mode", zap.String("mode", ModeSimulated))
		return NewSimulated(opts, log.Named("simulated")), ModeSimulated, func() {}, nil
	}

	log.Info("issuer mode", zap.String("mode", ModeEthereum), zap.String("rpc", opts.RPCURL))
	issuer, client, err := DialEthereum(ctx, opts, log.Named("ethereum"))
	if err != nil {
		return nil, "", nil, err
	}
	return issuer, ModeEthereum, client.Close, nil
}
