// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package kawpow

import "github.com/ethereum/go-ethereum/metrics"

var (
	cacheGenerateTimer   = metrics.NewRegisteredTimer("kawpow/cache/generate", nil)
	datasetGenerateTimer = metrics.NewRegisteredTimer("kawpow/dataset/generate", nil)
	cacheEvictMeter      = metrics.NewRegisteredMeter("kawpow/cache/evict", nil)
	datasetEvictMeter    = metrics.NewRegisteredMeter("kawpow/dataset/evict", nil)

	itemHitMeter  = metrics.NewRegisteredMeter("kawpow/item/hit", nil)
	itemMissMeter = metrics.NewRegisteredMeter("kawpow/item/miss", nil)

	computeLightTimer = metrics.NewRegisteredTimer("kawpow/compute/light", nil)
	computeFullTimer  = metrics.NewRegisteredTimer("kawpow/compute/full", nil)
	verifyTimer       = metrics.NewRegisteredTimer("kawpow/verify", nil)
	verifyFailMeter   = metrics.NewRegisteredMeter("kawpow/verify/fail", nil)
)

func evictionMeter(what string) metrics.Meter {
	if what == "dataset" {
		return datasetEvictMeter
	}
	return cacheEvictMeter
}
