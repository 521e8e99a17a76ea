package ledger

// tokenABI is the subset of the KJB token contract ABI the gateway calls.
const tokenABI = `[
 {"type":"function","name":"balanceOf","stateMutability":"view",
  "inputs":[{"name":"account","type":"address"}],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"transfer","stateMutability":"nonpayable",
  "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
  "outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"burn","stateMutability":"nonpayable",
  "inputs":[{"name":"amount","type":"uint256"}],
  "outputs":[]},
 {"type":"function","name":"burnFrom","stateMutability":"nonpayable",
  "inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],
  "outputs":[]},
 {"type":"function","name":"claimInitialGrant","stateMutability":"nonpayable",
  "inputs":[],
  "outputs":[]},
 {"type":"function","name":"hasClaimedInitialGrant","stateMutability":"view",
  "inputs":[{"name":"account","type":"address"}],
  "outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"getStats","stateMutability":"view",
  "inputs":[],
  "outputs":[{"name":"_totalSupply","type":"uint256"},{"name":"_totalMinted","type":"uint256"},{"name":"_totalBurned","type":"uint256"}]},
 {"type":"function","name":"name","stateMutability":"view",
  "inputs":[],
  "outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"symbol","stateMutability":"view",
  "inputs":[],
  "outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"decimals","stateMutability":"pure",
  "inputs":[],
  "outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"owner","stateMutability":"view",
  "inputs":[],
  "outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"INITIAL_GRANT","stateMutability":"view",
  "inputs":[],
  "outputs":[{"name":"","type":"uint256"}]}
]`
