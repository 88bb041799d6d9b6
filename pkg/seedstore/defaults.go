package seedstore

// Built-in seed endpoint lists per chain, used to bootstrap a fresh store.
// Operators override them through the CLI once the store exists.

var defaultSeeds = map[string][]string{
	"bts": {
		"faucet.bitshares.org:1776",
		"bitshares.openledger.info:1776",
		"bts-seed1.abit-more.com:62015",
		"seed.blocktrades.us:1776",
		"seed.bitsharesnodes.com:1776",
		"seed04.bitsharesnodes.com:1776",
		"seed05.bitsharesnodes.com:1776",
		"seed06.bitsharesnodes.com:1776",
		"seed07.bitsharesnodes.com:1776",
		"seed.cubeconnex.com:1777",
		"54.85.252.77:39705",
		"104.236.144.84:1777",
		"40.127.190.171:1777",
		"185.25.22.21:1776",
		"212.47.249.84:50696",
		"104.168.154.160:50696",
		"128.199.143.47:2015",
	},
	"muse": {
		"81.89.101.133:1777",
		"104.238.191.99:1781",
		"120.24.182.36:8091",
		"128.199.143.47:2017",
		"139.129.54.169:8091",
		"139.196.182.71:9091",
		"159.203.251.178:1776",
		"185.82.203.92:1974",
		"192.241.190.227:5197",
		"192.241.208.17:5197",
		"54.165.143.33:5197",
		"45.55.13.98:1776",
	},
	"steem": {
		"212.117.213.186:2016",
		"185.82.203.92:2001",
		"52.74.152.79:2001",
		"52.63.172.229:2001",
		"104.236.82.250:2001",
		"104.199.157.70:2001",
		"steem.kushed.com:2001",
		"steemd.pharesim.me:2001",
		"seed.steemnodes.com:2001",
		"steemseed.dele-puppy.com:2001",
		"seed.steemwitness.com:2001",
		"seed.steemed.net:2001",
		"steem-seed1.abit-more.com:2001",
		"steem.clawmap.com:2001",
		"52.62.24.225:2001",
		"steem-id.altexplorer.xyz:2001",
		"213.167.243.223:2001",
		"162.213.199.171:34191",
		"45.55.217.111:12150",
		"212.47.249.84:40696",
		"52.4.250.181:39705",
		"81.89.101.133:2001",
		"109.74.206.93:2001",
		"192.99.4.226:2001",
		"46.252.27.1:1337",
	},
}

// DefaultChains returns the chains that ship with a built-in seed list.
func DefaultChains() []string {
	return []string{"bts", "muse", "steem"}
}

// DefaultSeeds returns the built-in seed list for chain, or nil for a chain
// without one. The returned slice is a copy.
func DefaultSeeds(chain string) []string {
	seeds, ok := defaultSeeds[chain]
	if !ok {
		return nil
	}
	return append([]string(nil), seeds...)
}
