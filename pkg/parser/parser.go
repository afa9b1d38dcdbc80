// Package parser implements a recursive descent parser for SysY
package parser

import (
	"fmt"
	"strconv"

	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/lexer"
)

// Parser parses SysY source code into a syntax tree. curToken is always the
// next unconsumed token.
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) pos() ast.Pos {
	return ast.Pos{Line: p.curToken.Line, Col: p.curToken.Column}
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	if !p.failed() {
		p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	}
	return false
}

// ParseCompUnit parses a whole translation unit. Parsing stops at the first
// error; check Errors afterwards.
func (p *Parser) ParseCompUnit() *ast.CompUnit {
	cu := &ast.CompUnit{}
	for !p.curTokenIs(lexer.TokenEOF) && !p.failed() {
		switch p.curToken.Type {
		case lexer.TokenConst:
			if d := p.parseDecl(); d != nil {
				cu.Items = append(cu.Items, d)
			}
		case lexer.TokenInt_, lexer.TokenVoid:
			if item := p.parseTopLevel(); item != nil {
				cu.Items = append(cu.Items, item)
			}
		default:
			p.addError(fmt.Sprintf("expected declaration or function, got %s", p.curToken.Type))
		}
	}
	return cu
}

// parseTopLevel handles "int x ..." and "int f(...)" which share a prefix
func (p *Parser) parseTopLevel() ast.TopLevel {
	isVoid := p.curTokenIs(lexer.TokenVoid)
	p.nextToken()
	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
		return nil
	}
	if p.peekTokenIs(lexer.TokenLParen) {
		return p.parseFuncDef(isVoid)
	}
	if isVoid {
		p.addError("variable declared void")
		return nil
	}
	return p.parseDefList(false)
}

func (p *Parser) parseFuncDef(isVoid bool) *ast.FuncDef {
	fn := &ast.FuncDef{Pos: p.pos(), Void: isVoid, Name: p.curToken.Literal}
	p.nextToken()
	p.expect(lexer.TokenLParen)
	for !p.curTokenIs(lexer.TokenRParen) && !p.failed() {
		if len(fn.Params) > 0 {
			p.expect(lexer.TokenComma)
		}
		if prm := p.parseParam(); prm != nil {
			fn.Params = append(fn.Params, prm)
		}
	}
	p.expect(lexer.TokenRParen)
	if p.failed() {
		return nil
	}
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseParam() *ast.Param {
	if !p.expect(lexer.TokenInt_) {
		return nil
	}
	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected parameter name, got %s", p.curToken.Type))
		return nil
	}
	prm := &ast.Param{Name: p.curToken.Literal}
	p.nextToken()
	if p.curTokenIs(lexer.TokenLBracket) {
		prm.IsArray = true
		p.nextToken()
		p.expect(lexer.TokenRBracket)
		prm.Dims = p.parseDims()
	}
	return prm
}

// parseDims parses zero or more "[exp]" suffixes
func (p *Parser) parseDims() []ast.Expr {
	var dims []ast.Expr
	for p.curTokenIs(lexer.TokenLBracket) && !p.failed() {
		p.nextToken()
		dims = append(dims, p.parseExp())
		p.expect(lexer.TokenRBracket)
	}
	return dims
}

// parseDecl parses "[const] int def, def;"
func (p *Parser) parseDecl() *ast.Decl {
	isConst := p.curTokenIs(lexer.TokenConst)
	if isConst {
		p.nextToken()
	}
	if !p.expect(lexer.TokenInt_) {
		return nil
	}
	return p.parseDefList(isConst)
}

// parseDefList parses the definitions after the type keyword
func (p *Parser) parseDefList(isConst bool) *ast.Decl {
	d := &ast.Decl{Const: isConst}
	for !p.failed() {
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
			return nil
		}
		def := &ast.Def{Pos: p.pos(), Name: p.curToken.Literal}
		p.nextToken()
		def.Dims = p.parseDims()
		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			def.Init = p.parseInitVal()
		} else if isConst {
			p.addError(fmt.Sprintf("const %s has no initializer", def.Name))
			return nil
		}
		d.Defs = append(d.Defs, def)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenSemicolon)
	return d
}

func (p *Parser) parseInitVal() *ast.InitVal {
	if !p.curTokenIs(lexer.TokenLBrace) {
		return &ast.InitVal{Expr: p.parseExp()}
	}
	p.nextToken()
	iv := &ast.InitVal{List: []*ast.InitVal{}}
	for !p.curTokenIs(lexer.TokenRBrace) && !p.failed() {
		if len(iv.List) > 0 {
			p.expect(lexer.TokenComma)
		}
		iv.List = append(iv.List, p.parseInitVal())
	}
	p.expect(lexer.TokenRBrace)
	return iv
}

func (p *Parser) parseBlock() *ast.Block {
	b := &ast.Block{}
	if !p.expect(lexer.TokenLBrace) {
		return b
	}
	for !p.curTokenIs(lexer.TokenRBrace) && !p.failed() {
		if p.curTokenIs(lexer.TokenEOF) {
			p.addError("unexpected EOF in block")
			return b
		}
		if p.curTokenIs(lexer.TokenConst) || p.curTokenIs(lexer.TokenInt_) {
			if d := p.parseDecl(); d != nil {
				b.Items = append(b.Items, d)
			}
			continue
		}
		if s := p.parseStmt(); s != nil {
			b.Items = append(b.Items, s)
		}
	}
	p.expect(lexer.TokenRBrace)
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curToken.Type {
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		p.nextToken()
		p.expect(lexer.TokenLParen)
		cond := p.parseExp()
		p.expect(lexer.TokenRParen)
		return &ast.While{Cond: cond, Body: p.parseStmt()}
	case lexer.TokenBreak:
		s := &ast.Break{Pos: p.pos()}
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return s
	case lexer.TokenContinue:
		s := &ast.Continue{Pos: p.pos()}
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return s
	case lexer.TokenReturn:
		p.nextToken()
		s := &ast.Return{}
		if !p.curTokenIs(lexer.TokenSemicolon) {
			s.Value = p.parseExp()
		}
		p.expect(lexer.TokenSemicolon)
		return s
	case lexer.TokenSemicolon:
		p.nextToken()
		return &ast.ExprStmt{}
	}

	e := p.parseExp()
	if lv, ok := e.(*ast.LVal); ok && p.curTokenIs(lexer.TokenAssign) {
		p.nextToken()
		val := p.parseExp()
		p.expect(lexer.TokenSemicolon)
		return &ast.Assign{Target: lv, Value: val}
	}
	p.expect(lexer.TokenSemicolon)
	return &ast.ExprStmt{Expr: e}
}

// parseIf binds an else to the nearest if. A statement with an else becomes
// the closed IfElse form and one without stays the open If form.
func (p *Parser) parseIf() ast.Stmt {
	p.nextToken()
	p.expect(lexer.TokenLParen)
	cond := p.parseExp()
	p.expect(lexer.TokenRParen)
	then := p.parseStmt()
	if !p.curTokenIs(lexer.TokenElse) {
		return &ast.If{Cond: cond, Then: then}
	}
	p.nextToken()
	return &ast.IfElse{Cond: cond, Then: then, Else: p.parseStmt()}
}

// --- Expressions, lowest precedence first ---

func (p *Parser) parseExp() ast.Expr {
	return p.parseBinary(0)
}

// binaryLevels lists operators by increasing precedence
var binaryLevels = []map[lexer.TokenType]ast.BinaryOp{
	{lexer.TokenOr: ast.OpOr},
	{lexer.TokenAnd: ast.OpAnd},
	{lexer.TokenEq: ast.OpEq, lexer.TokenNe: ast.OpNe},
	{lexer.TokenLt: ast.OpLt, lexer.TokenGt: ast.OpGt, lexer.TokenLe: ast.OpLe, lexer.TokenGe: ast.OpGe},
	{lexer.TokenPlus: ast.OpAdd, lexer.TokenMinus: ast.OpSub},
	{lexer.TokenStar: ast.OpMul, lexer.TokenSlash: ast.OpDiv, lexer.TokenPercent: ast.OpMod},
}

// parseBinary parses a left-associative chain at the given precedence level
func (p *Parser) parseBinary(level int) ast.Expr {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for !p.failed() {
		op, ok := binaryLevels[level][p.curToken.Type]
		if !ok {
			break
		}
		p.nextToken()
		right := p.parseBinary(level + 1)
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	var op ast.UnaryOp
	switch p.curToken.Type {
	case lexer.TokenPlus:
		op = ast.OpPlus
	case lexer.TokenMinus:
		op = ast.OpNeg
	case lexer.TokenNot:
		op = ast.OpNot
	default:
		return p.parsePrimary()
	}
	p.nextToken()
	return &ast.Unary{Op: op, X: p.parseUnary()}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curToken.Type {
	case lexer.TokenLParen:
		p.nextToken()
		e := p.parseExp()
		p.expect(lexer.TokenRParen)
		return e
	case lexer.TokenInt:
		return p.parseNumber()
	case lexer.TokenIdent:
		if p.peekTokenIs(lexer.TokenLParen) {
			return p.parseCall()
		}
		lv := &ast.LVal{Pos: p.pos(), Name: p.curToken.Literal}
		p.nextToken()
		lv.Indices = p.parseDims()
		return lv
	}
	if !p.failed() {
		p.addError(fmt.Sprintf("unexpected token %s in expression", p.curToken.Type))
	}
	return &ast.Number{}
}

func (p *Parser) parseNumber() ast.Expr {
	lit := p.curToken.Literal
	v, err := strconv.ParseUint(lit, 0, 32)
	if err != nil {
		p.addError(fmt.Sprintf("invalid integer literal %q", lit))
		return &ast.Number{}
	}
	p.nextToken()
	// 2147483648 wraps so that -2147483648 round-trips
	return &ast.Number{Value: int32(uint32(v))}
}

func (p *Parser) parseCall() ast.Expr {
	call := &ast.Call{Pos: p.pos(), Name: p.curToken.Literal}
	p.nextToken() // name
	p.nextToken() // (
	for !p.curTokenIs(lexer.TokenRParen) && !p.failed() {
		if len(call.Args) > 0 {
			p.expect(lexer.TokenComma)
		}
		call.Args = append(call.Args, p.parseExp())
	}
	p.expect(lexer.TokenRParen)
	return call
}
