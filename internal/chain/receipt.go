package chain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventArgs holds the decoded fields of one emitted event, keyed by the
// argument names from the ABI.
type EventArgs map[string]any

// ExtractEvent scans a confirmed transaction's log entries for the named
// event on the given contract and returns the first successfully decoded
// occurrence. Entries that do not decode are skipped, not treated as errors;
// other contracts in the same transaction may emit their own events. The second return is false when no log
// matched; callers must handle the absence explicitly.
func ExtractEvent(receipt *types.Receipt, contract *BoundContract, eventName string) (EventArgs, bool) {
	event, ok := contract.ABI().Events[eventName]
	if !ok {
		return nil, false
	}

	for _, entry := range receipt.Logs {
		args, ok := decodeLog(entry, contract, event)
		if ok {
			return args, true
		}
	}
	return nil, false
}

// decodeLog attempts to decode one log entry against the event definition,
// returning false instead of an error on any mismatch.
func decodeLog(entry *types.Log, contract *BoundContract, event abi.Event) (EventArgs, bool) {
	if entry.Address != contract.Address() {
		return nil, false
	}
	if len(entry.Topics) == 0 || entry.Topics[0] != event.ID {
		return nil, false
	}

	args := make(EventArgs)

	// Non-indexed fields live in the data section.
	if err := event.Inputs.UnpackIntoMap(args, entry.Data); err != nil {
		return nil, false
	}

	// Indexed fields live in the remaining topics.
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(indexed) > 0 {
		if len(entry.Topics) < len(indexed)+1 {
			return nil, false
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, entry.Topics[1:]); err != nil {
			return nil, false
		}
	}

	return args, true
}
