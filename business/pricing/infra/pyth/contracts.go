package pyth

import "math/big"

// PythABI covers the single read used to fetch a price without an update fee.
const PythABI = `[
	{
		"inputs": [
			{"internalType": "bytes32", "name": "id", "type": "bytes32"}
		],
		"name": "getPriceUnsafe",
		"outputs": [
			{
				"components": [
					{"internalType": "int64", "name": "price", "type": "int64"},
					{"internalType": "uint64", "name": "conf", "type": "uint64"},
					{"internalType": "int32", "name": "expo", "type": "int32"},
					{"internalType": "uint256", "name": "publishTime", "type": "uint256"}
				],
				"internalType": "struct PythStructs.Price",
				"name": "price",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const getPriceUnsafe = "getPriceUnsafe"

// PythPrice mirrors PythStructs.Price.
type PythPrice struct {
	Price       int64
	Conf        uint64
	Expo        int32
	PublishTime *big.Int
}
