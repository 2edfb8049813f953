package main

import (
	"agritrace/config"
	"agritrace/contract"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("agritrace")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Error loading chaincode configuration: " + err.Error())
	}

	cc, err := contractapi.NewChaincode(&contract.SupplyChainContract{})
	if err != nil {
		panic("Error creating SupplyChainContract: " + err.Error())
	}

	if !cfg.External() {
		if err := cc.Start(); err != nil {
			panic("Error starting chaincode: " + err.Error())
		}
		return
	}

	tlsFiles, err := cfg.ReadTLSFiles()
	if err != nil {
		panic("Error reading chaincode TLS material: " + err.Error())
	}
	server := &shim.ChaincodeServer{
		CCID:    cfg.CCID,
		Address: cfg.ServerAddress,
		CC:      cc,
		TLSProps: shim.TLSProperties{
			Disabled:      cfg.TLSDisabled,
			Key:           tlsFiles.Key,
			Cert:          tlsFiles.Cert,
			ClientCACerts: tlsFiles.ClientCACert,
		},
	}
	logger.Infof("Starting chaincode service '%s' on %s", cfg.CCID, cfg.ServerAddress)
	if err := server.Start(); err != nil {
		panic("Error starting chaincode service: " + err.Error())
	}
}
