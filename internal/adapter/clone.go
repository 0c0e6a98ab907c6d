package adapter

import (
	"go/ast"
)

// CloneStmt returns a deep copy of the statement. Field values that carry
// identity (Ident objects, positions) are copied verbatim; identity
// registries keyed on the original pointers never match the clone.
func (a *GoASTAdapter) CloneStmt(stmt ast.Stmt) ast.Stmt {
	return cloneStmt(stmt)
}

// CloneExpr returns a deep copy of the expression.
func (a *GoASTAdapter) CloneExpr(expr ast.Expr) ast.Expr {
	return cloneExpr(expr)
}

func cloneStmt(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}

	switch st := s.(type) {
	case *ast.EmptyStmt:
		cp := *st
		return &cp
	case *ast.ExprStmt:
		return &ast.ExprStmt{X: cloneExpr(st.X)}
	case *ast.SendStmt:
		return &ast.SendStmt{Chan: cloneExpr(st.Chan), Arrow: st.Arrow, Value: cloneExpr(st.Value)}
	case *ast.IncDecStmt:
		return &ast.IncDecStmt{X: cloneExpr(st.X), TokPos: st.TokPos, Tok: st.Tok}
	case *ast.AssignStmt:
		return &ast.AssignStmt{
			Lhs:    cloneExprs(st.Lhs),
			TokPos: st.TokPos,
			Tok:    st.Tok,
			Rhs:    cloneExprs(st.Rhs),
		}
	case *ast.GoStmt:
		return &ast.GoStmt{Go: st.Go, Call: cloneCall(st.Call)}
	case *ast.DeferStmt:
		return &ast.DeferStmt{Defer: st.Defer, Call: cloneCall(st.Call)}
	case *ast.ReturnStmt:
		return &ast.ReturnStmt{Return: st.Return, Results: cloneExprs(st.Results)}
	case *ast.BranchStmt:
		return &ast.BranchStmt{TokPos: st.TokPos, Tok: st.Tok, Label: cloneIdent(st.Label)}
	case *ast.BlockStmt:
		return cloneBlock(st)
	case *ast.IfStmt:
		return &ast.IfStmt{
			If:   st.If,
			Init: cloneStmt(st.Init),
			Cond: cloneExpr(st.Cond),
			Body: cloneBlock(st.Body),
			Else: cloneStmt(st.Else),
		}
	case *ast.CaseClause:
		return &ast.CaseClause{
			Case:  st.Case,
			List:  cloneExprs(st.List),
			Colon: st.Colon,
			Body:  cloneStmts(st.Body),
		}
	case *ast.SwitchStmt:
		return &ast.SwitchStmt{
			Switch: st.Switch,
			Init:   cloneStmt(st.Init),
			Tag:    cloneExpr(st.Tag),
			Body:   cloneBlock(st.Body),
		}
	case *ast.TypeSwitchStmt:
		return &ast.TypeSwitchStmt{
			Switch: st.Switch,
			Init:   cloneStmt(st.Init),
			Assign: cloneStmt(st.Assign),
			Body:   cloneBlock(st.Body),
		}
	case *ast.CommClause:
		return &ast.CommClause{
			Case:  st.Case,
			Comm:  cloneStmt(st.Comm),
			Colon: st.Colon,
			Body:  cloneStmts(st.Body),
		}
	case *ast.SelectStmt:
		return &ast.SelectStmt{Select: st.Select, Body: cloneBlock(st.Body)}
	case *ast.ForStmt:
		return &ast.ForStmt{
			For:  st.For,
			Init: cloneStmt(st.Init),
			Cond: cloneExpr(st.Cond),
			Post: cloneStmt(st.Post),
			Body: cloneBlock(st.Body),
		}
	case *ast.RangeStmt:
		return &ast.RangeStmt{
			For:    st.For,
			Key:    cloneExpr(st.Key),
			Value:  cloneExpr(st.Value),
			TokPos: st.TokPos,
			Tok:    st.Tok,
			Range:  st.Range,
			X:      cloneExpr(st.X),
			Body:   cloneBlock(st.Body),
		}
	case *ast.LabeledStmt:
		return &ast.LabeledStmt{
			Label: cloneIdent(st.Label),
			Colon: st.Colon,
			Stmt:  cloneStmt(st.Stmt),
		}
	case *ast.DeclStmt:
		return &ast.DeclStmt{Decl: cloneDecl(st.Decl)}
	}

	// Unsupported statement kinds pass through unchanged; they sit outside
	// the mutatable set.
	return s
}

func cloneStmts(list []ast.Stmt) []ast.Stmt {
	if list == nil {
		return nil
	}

	out := make([]ast.Stmt, len(list))
	for i, s := range list {
		out[i] = cloneStmt(s)
	}

	return out
}

func cloneBlock(b *ast.BlockStmt) *ast.BlockStmt {
	if b == nil {
		return nil
	}

	return &ast.BlockStmt{Lbrace: b.Lbrace, List: cloneStmts(b.List), Rbrace: b.Rbrace}
}

func cloneIdent(id *ast.Ident) *ast.Ident {
	if id == nil {
		return nil
	}

	return &ast.Ident{NamePos: id.NamePos, Name: id.Name}
}

func cloneCall(c *ast.CallExpr) *ast.CallExpr {
	if c == nil {
		return nil
	}

	return &ast.CallExpr{
		Fun:      cloneExpr(c.Fun),
		Lparen:   c.Lparen,
		Args:     cloneExprs(c.Args),
		Ellipsis: c.Ellipsis,
		Rparen:   c.Rparen,
	}
}

func cloneExprs(list []ast.Expr) []ast.Expr {
	if list == nil {
		return nil
	}

	out := make([]ast.Expr, len(list))
	for i, e := range list {
		out[i] = cloneExpr(e)
	}

	return out
}

func cloneExpr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}

	switch ex := e.(type) {
	case *ast.Ident:
		return cloneIdent(ex)
	case *ast.BasicLit:
		cp := *ex
		return &cp
	case *ast.Ellipsis:
		return &ast.Ellipsis{Ellipsis: ex.Ellipsis, Elt: cloneExpr(ex.Elt)}
	case *ast.FuncLit:
		return &ast.FuncLit{Type: cloneFuncType(ex.Type), Body: cloneBlock(ex.Body)}
	case *ast.CompositeLit:
		return &ast.CompositeLit{
			Type:   cloneExpr(ex.Type),
			Lbrace: ex.Lbrace,
			Elts:   cloneExprs(ex.Elts),
			Rbrace: ex.Rbrace,
		}
	case *ast.ParenExpr:
		return &ast.ParenExpr{Lparen: ex.Lparen, X: cloneExpr(ex.X), Rparen: ex.Rparen}
	case *ast.SelectorExpr:
		return &ast.SelectorExpr{X: cloneExpr(ex.X), Sel: cloneIdent(ex.Sel)}
	case *ast.IndexExpr:
		return &ast.IndexExpr{
			X:      cloneExpr(ex.X),
			Lbrack: ex.Lbrack,
			Index:  cloneExpr(ex.Index),
			Rbrack: ex.Rbrack,
		}
	case *ast.IndexListExpr:
		return &ast.IndexListExpr{
			X:       cloneExpr(ex.X),
			Lbrack:  ex.Lbrack,
			Indices: cloneExprs(ex.Indices),
			Rbrack:  ex.Rbrack,
		}
	case *ast.SliceExpr:
		return &ast.SliceExpr{
			X:      cloneExpr(ex.X),
			Lbrack: ex.Lbrack,
			Low:    cloneExpr(ex.Low),
			High:   cloneExpr(ex.High),
			Max:    cloneExpr(ex.Max),
			Slice3: ex.Slice3,
			Rbrack: ex.Rbrack,
		}
	case *ast.TypeAssertExpr:
		return &ast.TypeAssertExpr{
			X:      cloneExpr(ex.X),
			Lparen: ex.Lparen,
			Type:   cloneExpr(ex.Type),
			Rparen: ex.Rparen,
		}
	case *ast.CallExpr:
		return cloneCall(ex)
	case *ast.StarExpr:
		return &ast.StarExpr{Star: ex.Star, X: cloneExpr(ex.X)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{OpPos: ex.OpPos, Op: ex.Op, X: cloneExpr(ex.X)}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{
			X:     cloneExpr(ex.X),
			OpPos: ex.OpPos,
			Op:    ex.Op,
			Y:     cloneExpr(ex.Y),
		}
	case *ast.KeyValueExpr:
		return &ast.KeyValueExpr{
			Key:   cloneExpr(ex.Key),
			Colon: ex.Colon,
			Value: cloneExpr(ex.Value),
		}
	case *ast.ArrayType:
		return &ast.ArrayType{Lbrack: ex.Lbrack, Len: cloneExpr(ex.Len), Elt: cloneExpr(ex.Elt)}
	case *ast.MapType:
		return &ast.MapType{Map: ex.Map, Key: cloneExpr(ex.Key), Value: cloneExpr(ex.Value)}
	case *ast.ChanType:
		return &ast.ChanType{
			Begin: ex.Begin,
			Arrow: ex.Arrow,
			Dir:   ex.Dir,
			Value: cloneExpr(ex.Value),
		}
	case *ast.FuncType:
		return cloneFuncType(ex)
	case *ast.StructType:
		return &ast.StructType{
			Struct:     ex.Struct,
			Fields:     cloneFieldList(ex.Fields),
			Incomplete: ex.Incomplete,
		}
	case *ast.InterfaceType:
		return &ast.InterfaceType{
			Interface:  ex.Interface,
			Methods:    cloneFieldList(ex.Methods),
			Incomplete: ex.Incomplete,
		}
	}

	return e
}

func cloneFuncType(ft *ast.FuncType) *ast.FuncType {
	if ft == nil {
		return nil
	}

	return &ast.FuncType{
		Func:       ft.Func,
		TypeParams: cloneFieldList(ft.TypeParams),
		Params:     cloneFieldList(ft.Params),
		Results:    cloneFieldList(ft.Results),
	}
}

func cloneFieldList(fl *ast.FieldList) *ast.FieldList {
	if fl == nil {
		return nil
	}

	out := &ast.FieldList{Opening: fl.Opening, Closing: fl.Closing}
	for _, f := range fl.List {
		names := make([]*ast.Ident, len(f.Names))
		for i, n := range f.Names {
			names[i] = cloneIdent(n)
		}

		out.List = append(out.List, &ast.Field{
			Names: names,
			Type:  cloneExpr(f.Type),
			Tag:   nil,
		})
	}

	return out
}

func cloneDecl(d ast.Decl) ast.Decl {
	gen, ok := d.(*ast.GenDecl)
	if !ok {
		return d
	}

	out := &ast.GenDecl{
		TokPos: gen.TokPos,
		Tok:    gen.Tok,
		Lparen: gen.Lparen,
		Rparen: gen.Rparen,
	}

	for _, spec := range gen.Specs {
		switch sp := spec.(type) {
		case *ast.ValueSpec:
			names := make([]*ast.Ident, len(sp.Names))
			for i, n := range sp.Names {
				names[i] = cloneIdent(n)
			}

			out.Specs = append(out.Specs, &ast.ValueSpec{
				Names:  names,
				Type:   cloneExpr(sp.Type),
				Values: cloneExprs(sp.Values),
			})
		case *ast.TypeSpec:
			out.Specs = append(out.Specs, &ast.TypeSpec{
				Name:   cloneIdent(sp.Name),
				Assign: sp.Assign,
				Type:   cloneExpr(sp.Type),
			})
		default:
			out.Specs = append(out.Specs, spec)
		}
	}

	return out
}
